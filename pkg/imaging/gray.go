// Package imaging implements the raster maths used for slide detection:
// luminance conversion, Gaussian smoothing, the Laplacian focus measure,
// structural similarity and output rotation.
//
// All functions are pure; they never mutate their inputs.
package imaging

import (
	"errors"
	"image"
)

var (
	ErrDimensionMismatch = errors.New("imaging: raster dimensions differ")
	ErrTooSmall          = errors.New("imaging: raster smaller than comparison window")
)

// BT.601 weights in 14-bit fixed point, matching the usual RGB->gray conversion.
const (
	yR     = 4899
	yG     = 9617
	yB     = 1868
	yShift = 14
	yRound = 1 << (yShift - 1)
)

func luma(r, g, b uint32) uint8 {
	return uint8((r*yR + g*yG + b*yB + yRound) >> yShift)
}

// Luminance converts img to a single 8-bit channel. The returned raster
// always starts at (0,0).
func Luminance(img image.Image) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			so := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+w], src.Pix[so:so+w])
		}
	case *image.RGBA:
		for y := 0; y < h; y++ {
			so := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := out.Pix[y*out.Stride:]
			for x := 0; x < w; x++ {
				p := src.Pix[so+4*x : so+4*x+3]
				row[x] = luma(uint32(p[0]), uint32(p[1]), uint32(p[2]))
			}
		}
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			so := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := out.Pix[y*out.Stride:]
			for x := 0; x < w; x++ {
				p := src.Pix[so+4*x : so+4*x+3]
				row[x] = luma(uint32(p[0]), uint32(p[1]), uint32(p[2]))
			}
		}
	default:
		for y := 0; y < h; y++ {
			row := out.Pix[y*out.Stride:]
			for x := 0; x < w; x++ {
				r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				row[x] = luma(r>>8, g>>8, bb>>8)
			}
		}
	}
	return out
}

// SameSize reports whether a and b have identical width and height.
func SameSize(a, b image.Rectangle) bool {
	return a.Dx() == b.Dx() && a.Dy() == b.Dy()
}

// reflect101 maps an out-of-range index onto [0,n) mirroring around the
// edge pixels without repeating them (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// reflectSym mirrors including the edge pixel (dcba|abcd|dcba).
func reflectSym(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - 1 - i
		}
	}
	return i
}
