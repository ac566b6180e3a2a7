package imaging

import "image"

// Laplacian applies the 4-neighbour second-derivative operator
//
//	0  1  0
//	1 -4  1
//	0  1  0
//
// to src and returns the response row-major, width*height long.
func Laplacian(src *image.Gray) []float64 {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)
	at := func(x, y int) float64 {
		return float64(src.Pix[src.PixOffset(b.Min.X+reflect101(x, w), b.Min.Y+reflect101(y, h))])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = at(x, y-1) + at(x-1, y) + at(x+1, y) + at(x, y+1) - 4*at(x, y)
		}
	}
	return out
}

// Variance is the population variance of values; zero for an empty slice.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}
