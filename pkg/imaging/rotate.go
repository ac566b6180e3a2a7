package imaging

import (
	"fmt"
	"image"
	"image/draw"
)

// ValidRotation reports whether degrees is one of 0, 90, 180 or 270.
func ValidRotation(degrees int) bool {
	switch degrees {
	case 0, 90, 180, 270:
		return true
	}
	return false
}

// Rotate turns img clockwise by degrees. Zero returns img untouched.
func Rotate(img image.Image, degrees int) (image.Image, error) {
	if !ValidRotation(degrees) {
		return nil, fmt.Errorf("imaging: unsupported rotation %d (want 0, 90, 180 or 270)", degrees)
	}
	if degrees == 0 {
		return img, nil
	}

	src := toRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	var dst *image.RGBA
	if degrees == 180 {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch degrees {
			case 90:
				dx, dy = h-1-y, x
			case 180:
				dx, dy = w-1-x, h-1-y
			case 270:
				dx, dy = y, w-1-x
			}
			si := src.PixOffset(x, y)
			di := dst.PixOffset(dx, dy)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	return rgba
}
