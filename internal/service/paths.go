package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"slide-extractor/internal/appdirs"
)

const downloadPrefix = "/api/file/"

var appDirsResolver = appdirs.Resolve

func resolveTaskDir(taskID string) (string, error) {
	if strings.TrimSpace(taskID) == "" {
		return "", fmt.Errorf("task id is empty")
	}
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.TaskDirFor(dirs, taskID), nil
}

func resolveTaskOutputDir(taskID string) (string, error) {
	if strings.TrimSpace(taskID) == "" {
		return "", fmt.Errorf("task id is empty")
	}
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.TaskOutputDirFor(dirs, taskID), nil
}

// resolveTaskDownloadPath maps an artifact under the task root to the
// "tasks/..." form served by the file download endpoint.
func resolveTaskDownloadPath(localPath string) (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}

	taskRoot := appdirs.TaskRootFor(dirs)
	cleanedLocalPath := filepath.Clean(localPath)
	relPath, err := filepath.Rel(taskRoot, cleanedLocalPath)
	if err != nil {
		return "", err
	}
	if relPath == "." || relPath == "" {
		return "", fmt.Errorf("task artifact path %q is not a file path", localPath)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("task artifact path %q is outside task root %q", localPath, taskRoot)
	}
	return filepath.ToSlash(filepath.Join(appdirs.TaskRootName, relPath)), nil
}

// downloadURL returns the API url of an artifact, or "" when there is none.
func downloadURL(localPath string) string {
	if localPath == "" {
		return ""
	}
	rel, err := resolveTaskDownloadPath(localPath)
	if err != nil {
		return ""
	}
	return downloadPrefix + rel
}
