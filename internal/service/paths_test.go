package service

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slide-extractor/internal/appdirs"
)

func useTempAppDirs(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	originalResolver := appDirsResolver
	t.Cleanup(func() {
		appDirsResolver = originalResolver
	})

	outputDir := filepath.Join(tempDir, "output-root")
	appDirsResolver = func() (appdirs.Paths, error) {
		return appdirs.Paths{
			OutputDir: outputDir,
			CacheDir:  filepath.Join(tempDir, "cache-root"),
		}, nil
	}
	return outputDir
}

func TestResolveTaskDirUsesOutputDir(t *testing.T) {
	outputDir := useTempAppDirs(t)

	got, err := resolveTaskDir("task-001")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, "tasks", "task-001"), got)

	got, err = resolveTaskOutputDir("task-001")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, "tasks", "task-001", "output"), got)

	_, err = resolveTaskDir("  ")
	assert.Error(t, err)
}

func TestResolveTaskDownloadPath(t *testing.T) {
	outputDir := useTempAppDirs(t)

	localArtifact := filepath.Join(outputDir, "tasks", "task-001", "output", "slides.pdf")
	got, err := resolveTaskDownloadPath(localArtifact)
	require.NoError(t, err)
	assert.Equal(t, "tasks/task-001/output/slides.pdf", got)
	assert.Equal(t, "/api/file/tasks/task-001/output/slides.pdf", downloadURL(localArtifact))
}

func TestResolveTaskDownloadPathRejectsOutsideRoot(t *testing.T) {
	outputDir := useTempAppDirs(t)

	_, err := resolveTaskDownloadPath(filepath.Join(filepath.Dir(outputDir), "not-task-root", "slides.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside task root")

	_, err = resolveTaskDownloadPath(filepath.Join(outputDir, "tasks"))
	assert.Error(t, err)

	assert.Empty(t, downloadURL(""))
	assert.Empty(t, downloadURL(filepath.Join(filepath.Dir(outputDir), "elsewhere.pdf")))
}
