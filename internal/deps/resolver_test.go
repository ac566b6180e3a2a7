package deps

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slide-extractor/config"
	"slide-extractor/internal/storage"
)

func notFoundErr(command string) error {
	return &exec.Error{Name: command, Err: exec.ErrNotFound}
}

func missingEverywhere() PathResolver {
	r := NewPathResolver()
	r.LookPath = func(file string) (string, error) { return "", notFoundErr(file) }
	return r
}

func TestResolvePrefersConfiguredPath(t *testing.T) {
	binPath := filepath.Join(t.TempDir(), "ffmpeg-custom")
	require.NoError(t, os.WriteFile(binPath, []byte("ffmpeg"), 0o755))

	state := missingEverywhere().Resolve(Spec{ID: "ffmpeg", Command: "ffmpeg", ConfiguredPath: binPath})

	assert.Equal(t, StatusOK, state.Status)
	assert.Equal(t, SourceConfig, state.Source)
	assert.Equal(t, binPath, state.ResolvedPath)
}

func TestResolveFallsBackToLookPath(t *testing.T) {
	r := NewPathResolver()
	r.LookPath = func(file string) (string, error) {
		require.Equal(t, "ffprobe", file)
		return "/usr/bin/ffprobe", nil
	}

	state := r.Resolve(Spec{ID: "ffprobe", Command: "ffprobe"})
	assert.Equal(t, StatusOK, state.Status)
	assert.Equal(t, SourceLookPath, state.Source)
	assert.Equal(t, "/usr/bin/ffprobe", state.ResolvedPath)
}

func TestResolveReportsMissing(t *testing.T) {
	state := missingEverywhere().Resolve(Spec{ID: "ffmpeg", Command: "ffmpeg"})
	assert.Equal(t, StatusMissing, state.Status)
	assert.Empty(t, state.ResolvedPath)
	assert.NotEmpty(t, state.Error)

	missingPath := filepath.Join(t.TempDir(), "missing-ffmpeg")
	state = missingEverywhere().Resolve(Spec{ID: "ffmpeg", Command: "ffmpeg", ConfiguredPath: missingPath})
	assert.Equal(t, StatusMissing, state.Status)
	assert.Equal(t, SourceConfig, state.Source)
	assert.Equal(t, missingPath, state.ResolvedPath)
}

func TestResolveConfiguredStatFailureIsError(t *testing.T) {
	r := missingEverywhere()
	r.AbsPath = func(string) (string, error) { return "/opt/ffmpeg/bin/ffmpeg", nil }
	r.Stat = func(string) (os.FileInfo, error) { return nil, errors.New("permission denied") }

	state := r.Resolve(Spec{ID: "ffmpeg", Command: "ffmpeg", ConfiguredPath: "ffmpeg-local"})
	assert.Equal(t, StatusError, state.Status)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", state.ResolvedPath)
	assert.Contains(t, state.Error, "permission denied")
}

func TestCheckDependency(t *testing.T) {
	oldResolver, oldFfmpeg, oldFfprobe, oldConf := pathResolver, storage.FfmpegPath, storage.FfprobePath, config.Conf
	t.Cleanup(func() {
		pathResolver, storage.FfmpegPath, storage.FfprobePath, config.Conf = oldResolver, oldFfmpeg, oldFfprobe, oldConf
	})
	config.Conf = config.Default()

	pathResolver = NewPathResolver()
	pathResolver.LookPath = func(file string) (string, error) { return "/usr/local/bin/" + file, nil }
	require.NoError(t, CheckDependency())
	assert.Equal(t, "/usr/local/bin/ffmpeg", storage.FfmpegPath)
	assert.Equal(t, "/usr/local/bin/ffprobe", storage.FfprobePath)

	pathResolver.LookPath = func(file string) (string, error) {
		if file == "ffprobe" {
			return "", notFoundErr(file)
		}
		return "/usr/bin/" + file, nil
	}
	err := CheckDependency()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffprobe")
}

func TestReport(t *testing.T) {
	assert.Equal(t, "No dependencies to diagnose.", Report(nil))

	states := ResolveAll(Inventory(config.Bin{}), missingEverywhere())
	report := Report(states)
	assert.Contains(t, report, "- ffmpeg [MUST]: missing | path=unknown | source=lookpath")
	assert.Contains(t, report, "hint: Required to decode video frames")
}
