package handler

import (
	"path/filepath"
	"regexp"
	"strings"

	"slide-extractor/internal/appdirs"
)

var appDirsResolver = appdirs.Resolve

var (
	taskIDPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	slideImagePattern = regexp.MustCompile(`^slide_[0-9]{3,}\.png$`)
)

// taskDocuments are the single files a task leaves in its output dir.
var taskDocuments = map[string]bool{
	appdirs.TaskPdfName:   true,
	appdirs.TaskZipName:   true,
	appdirs.TaskTraceName: true,
}

func preferredUploadRoot() string {
	if dirs, err := appDirsResolver(); err == nil {
		return appdirs.UploadRootFor(dirs)
	}
	return appdirs.UploadRootName
}

// resolveDownloadPath maps a request path onto the artifact layout
//
//	tasks/<id>/output/{slides.pdf,slides.zip,trace.json}
//	tasks/<id>/output/images/slide_NNN.png
//	uploads/<name>
//
// and refuses everything else.
func resolveDownloadPath(requested string) (string, bool) {
	parts, ok := splitRequest(requested)
	if !ok {
		return "", false
	}
	dirs, err := appDirsResolver()
	if err != nil {
		return "", false
	}

	switch parts[0] {
	case appdirs.TaskRootName:
		return resolveTaskArtifact(dirs, parts[1:])
	case appdirs.UploadRootName:
		if len(parts) != 2 {
			return "", false
		}
		return filepath.Join(appdirs.UploadRootFor(dirs), parts[1]), true
	}
	return "", false
}

// resolveTaskArtifact takes the segments after "tasks/".
func resolveTaskArtifact(dirs appdirs.Paths, parts []string) (string, bool) {
	if len(parts) < 3 || !taskIDPattern.MatchString(parts[0]) || parts[1] != appdirs.TaskOutputName {
		return "", false
	}
	outputDir := appdirs.TaskOutputDirFor(dirs, parts[0])

	switch rest := parts[2:]; {
	case len(rest) == 1 && taskDocuments[rest[0]]:
		return filepath.Join(outputDir, rest[0]), true
	case len(rest) == 2 && rest[0] == appdirs.TaskImagesName && slideImagePattern.MatchString(rest[1]):
		return filepath.Join(outputDir, rest[0], rest[1]), true
	}
	return "", false
}

// splitRequest breaks a slash separated path into segments. Empty, "." and
// ".." segments and backslashes make the whole request invalid.
func splitRequest(requested string) ([]string, bool) {
	requested = strings.Trim(strings.TrimSpace(requested), "/")
	if requested == "" || strings.Contains(requested, "\\") {
		return nil, false
	}
	parts := strings.Split(requested, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return nil, false
		}
	}
	return parts, true
}
