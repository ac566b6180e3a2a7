// Package output writes extracted slides as a PDF document, a numbered
// PNG image set, a zip bundle and a diagnostic trace.
package output

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"slide-extractor/pkg/imaging"
	apperrors "slide-extractor/pkg/errors"
)

const DefaultDPI = 150

// ImageName is the file name of the 1-based slide ordinal n.
func ImageName(n int) string {
	return fmt.Sprintf("slide_%03d.png", n)
}

// Stem strips the extension from path.
func Stem(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext)
}

// ImagesDirFor is the sibling directory for the image set of a document.
func ImagesDirFor(documentPath string) string {
	return Stem(documentPath) + "_images"
}

// DebugPathFor is the sibling trace file of a document.
func DebugPathFor(documentPath, ext string) string {
	return Stem(documentPath) + "_debug" + ext
}

// prepare validates the slide list and applies the rotation.
func prepare(images []image.Image, rotate int) ([]image.Image, error) {
	if len(images) == 0 {
		return nil, apperrors.ErrEmptyOutput
	}
	if !imaging.ValidRotation(rotate) {
		return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidOptions, apperrors.ErrInvalidOptions.Message,
			fmt.Sprintf("rotation must be 0, 90, 180 or 270, got %d", rotate), nil)
	}
	out := make([]image.Image, len(images))
	for i, img := range images {
		if img == nil {
			return nil, apperrors.WrapWithDetail(apperrors.CodeEncodeFailed, apperrors.ErrEncodeFailed.Message,
				fmt.Sprintf("slide %d has no image", i+1), nil)
		}
		rotated, err := imaging.Rotate(img, rotate)
		if err != nil {
			return nil, err
		}
		out[i] = rotated
	}
	return out, nil
}

func encodeFailed(err error) error {
	return apperrors.Wrap(apperrors.CodeEncodeFailed, apperrors.ErrEncodeFailed.Message, err)
}
