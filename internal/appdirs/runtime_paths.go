package appdirs

import (
	"path/filepath"
	"strings"
)

const (
	TaskRootName   = "tasks"
	UploadRootName = "uploads"
	TaskOutputName = "output"
	dbFileName     = "slides.db"
)

// Files a task writes into its output dir.
const (
	TaskPdfName    = "slides.pdf"
	TaskZipName    = "slides.zip"
	TaskTraceName  = "trace.json"
	TaskImagesName = "images"
)

func TaskRootFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), TaskRootName)
}

func TaskDirFor(paths Paths, taskID string) string {
	return filepath.Join(TaskRootFor(paths), taskID)
}

// TaskOutputDirFor is where a task's PDF, images and trace are written.
func TaskOutputDirFor(paths Paths, taskID string) string {
	return filepath.Join(TaskDirFor(paths, taskID), TaskOutputName)
}

func UploadRootFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), UploadRootName)
}

func DBPathFor(paths Paths) string {
	return filepath.Join(normalizeCacheDir(paths.CacheDir), dbFileName)
}

func normalizeOutputDir(outputDir string) string {
	cleaned := strings.TrimSpace(outputDir)
	if cleaned == "" {
		return "."
	}
	return filepath.Clean(cleaned)
}

func normalizeCacheDir(cacheDir string) string {
	cleaned := strings.TrimSpace(cacheDir)
	if cleaned == "" {
		return "cache"
	}
	return filepath.Clean(cleaned)
}
