package slides

import (
	"image"

	"slide-extractor/pkg/imaging"
)

// Sharpness is the variance of the Laplacian of img's luminance. Higher
// means better focused.
func Sharpness(img image.Image) float64 {
	return sharpnessOf(imaging.Luminance(img))
}

func sharpnessOf(gray *image.Gray) float64 {
	return imaging.Variance(imaging.Laplacian(gray))
}
