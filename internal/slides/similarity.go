package slides

import (
	"errors"
	"fmt"
	"image"

	"slide-extractor/pkg/imaging"
	apperrors "slide-extractor/pkg/errors"
)

// BlurKernel is the Gaussian kernel size applied before comparison. It is
// large enough to hide cursors and pointer motion.
const BlurKernel = 21

// Prepared is a frame reduced to the blurred luminance raster that
// Compare operates on. Preparing once per frame halves the blur work
// when a frame takes part in two comparisons.
type Prepared struct {
	gray *image.Gray
}

func (p *Prepared) Bounds() image.Rectangle { return p.gray.Bounds() }

// Prepare converts img to luminance and applies the comparison blur.
func Prepare(img image.Image) *Prepared {
	return prepareGray(imaging.Luminance(img))
}

func prepareGray(gray *image.Gray) *Prepared {
	return &Prepared{gray: imaging.GaussianBlur(gray, BlurKernel, 0)}
}

// Compare returns the structural similarity of two prepared frames.
func Compare(a, b *Prepared) (float64, error) {
	if !imaging.SameSize(a.gray.Bounds(), b.gray.Bounds()) {
		return 0, dimensionMismatch(a.gray.Bounds(), b.gray.Bounds())
	}
	score, err := imaging.SSIM(a.gray, b.gray)
	if err != nil {
		if errors.Is(err, imaging.ErrDimensionMismatch) {
			return 0, dimensionMismatch(a.gray.Bounds(), b.gray.Bounds())
		}
		return 0, apperrors.Wrap(apperrors.CodeInvalidParams, "Frame too small to compare", err)
	}
	return score, nil
}

// Similarity compares two frames. Frames of different sizes fail with
// DimensionMismatch.
func Similarity(a, b image.Image) (float64, error) {
	if !imaging.SameSize(a.Bounds(), b.Bounds()) {
		return 0, dimensionMismatch(a.Bounds(), b.Bounds())
	}
	return Compare(Prepare(a), Prepare(b))
}

func dimensionMismatch(a, b image.Rectangle) error {
	return apperrors.WrapWithDetail(apperrors.CodeDimensionMismatch, apperrors.ErrDimensionMismatch.Message,
		fmt.Sprintf("%dx%d vs %dx%d", a.Dx(), a.Dy(), b.Dx(), b.Dy()), nil)
}
