package imaging

import (
	"image"
	"math"
)

// GaussianKernel returns normalised 1-D weights for an odd kernel size.
// A non-positive sigma is derived from the size as 0.3*((k-1)*0.5-1)+0.8.
func GaussianKernel(size int, sigma float64) []float64 {
	if size < 1 {
		size = 1
	}
	if size%2 == 0 {
		size++
	}
	if sigma <= 0 {
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}

	kernel := make([]float64, size)
	center := size / 2
	scale := -0.5 / (sigma * sigma)
	var sum float64
	for i := range kernel {
		d := float64(i - center)
		kernel[i] = math.Exp(d * d * scale)
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// GaussianBlur smooths src with a separable size×size Gaussian kernel.
// Borders use reflect-101 extension and the result is rounded back to 8 bits.
func GaussianBlur(src *image.Gray, size int, sigma float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	kernel := GaussianKernel(size, sigma)
	radius := len(kernel) / 2

	// horizontal pass into a float buffer
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			var acc float64
			for k, weight := range kernel {
				acc += weight * float64(row[reflect101(x+k-radius, w)])
			}
			tmp[y*w+x] = acc
		}
	}

	// vertical pass
	for y := 0; y < h; y++ {
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			var acc float64
			for k, weight := range kernel {
				acc += weight * tmp[reflect101(y+k-radius, h)*w+x]
			}
			dst[x] = clamp8(acc)
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
