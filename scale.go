package heatmap

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Scale resamples img to width x height with Catmull-Rom filtering.
//
// If one dimension is zero or negative it is derived from the other so the
// aspect ratio is kept. If both are, or img is empty, Scale returns a copy
// at the original size.
func Scale(img image.Image, width, height int) *image.RGBA {
	sb := img.Bounds()
	sw, sh := sb.Dx(), sb.Dy()

	switch {
	case sw == 0 || sh == 0:
		width, height = sw, sh
	case width <= 0 && height <= 0:
		width, height = sw, sh
	case width <= 0:
		width = max(1, roundHalfUp(float64(height)*float64(sw)/float64(sh)))
	case height <= 0:
		height = max(1, roundHalfUp(float64(width)*float64(sh)/float64(sw)))
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == sw && height == sh {
		xdraw.Copy(dst, image.Point{}, img, sb, xdraw.Src, nil)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, sb, xdraw.Src, nil)
	return dst
}
