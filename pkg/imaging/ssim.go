package imaging

import (
	"fmt"
	"image"
)

// SSIM parameters. The window is a uniform 7×7 box and variances use the
// sample (N-1) normalisation.
const (
	SSIMWindow = 7
	ssimK1     = 0.01
	ssimK2     = 0.03
	dataRange  = 255.0
)

// SSIM returns the mean structural similarity index of two equally sized
// 8-bit rasters. Pixels within half a window of the border are excluded from
// the mean. The result lies in [-1, 1]; identical inputs give exactly 1.
func SSIM(a, b *image.Gray) (float64, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if !SameSize(ab, bb) {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
	}
	w, h := ab.Dx(), ab.Dy()
	if w < SSIMWindow || h < SSIMWindow {
		return 0, fmt.Errorf("%w: %dx%d < %d", ErrTooSmall, w, h, SSIMWindow)
	}

	n := w * h
	x := make([]float64, n)
	y := make([]float64, n)
	xx := make([]float64, n)
	yy := make([]float64, n)
	xy := make([]float64, n)
	for row := 0; row < h; row++ {
		ra := a.Pix[a.PixOffset(ab.Min.X, ab.Min.Y+row):]
		rb := b.Pix[b.PixOffset(bb.Min.X, bb.Min.Y+row):]
		for col := 0; col < w; col++ {
			i := row*w + col
			va, vb := float64(ra[col]), float64(rb[col])
			x[i], y[i] = va, vb
			xx[i], yy[i], xy[i] = va*va, vb*vb, va*vb
		}
	}

	ux := boxFilter(x, w, h, SSIMWindow)
	uy := boxFilter(y, w, h, SSIMWindow)
	uxx := boxFilter(xx, w, h, SSIMWindow)
	uyy := boxFilter(yy, w, h, SSIMWindow)
	uxy := boxFilter(xy, w, h, SSIMWindow)

	np := float64(SSIMWindow * SSIMWindow)
	covNorm := np / (np - 1)
	c1 := (ssimK1 * dataRange) * (ssimK1 * dataRange)
	c2 := (ssimK2 * dataRange) * (ssimK2 * dataRange)

	pad := (SSIMWindow - 1) / 2
	var sum float64
	var count int
	for row := pad; row < h-pad; row++ {
		for col := pad; col < w-pad; col++ {
			i := row*w + col
			mx, my := ux[i], uy[i]
			vx := covNorm * (uxx[i] - mx*mx)
			vy := covNorm * (uyy[i] - my*my)
			vxy := covNorm * (uxy[i] - mx*my)

			num := (2*mx*my + c1) * (2*vxy + c2)
			den := (mx*mx + my*my + c1) * (vx + vy + c2)
			sum += num / den
			count++
		}
	}
	return sum / float64(count), nil
}

// boxFilter is a separable mean filter with symmetric border reflection.
func boxFilter(src []float64, w, h, size int) []float64 {
	radius := size / 2
	inv := 1 / float64(size)

	tmp := make([]float64, len(src))
	for y := 0; y < h; y++ {
		row := src[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				acc += row[reflectSym(x+k, w)]
			}
			tmp[y*w+x] = acc * inv
		}
	}

	out := make([]float64, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				acc += tmp[reflectSym(y+k, h)*w+x]
			}
			out[y*w+x] = acc * inv
		}
	}
	return out
}
