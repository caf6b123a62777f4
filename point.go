package heatmap

import (
	"image"
	"math"
)

// maxPixelCoord bounds mapped pixel coordinates so that absurd but finite
// positions cannot overflow int arithmetic. Anything this far out is
// invisible on any surface this package will ever render.
const maxPixelCoord = 1 << 24

// Point represents a 2D point. For sample positions the components are
// normalized to the output surface.
type Point struct {
	X, Y float64
}

// Pt is a convenience function to create a Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// IsFinite reports whether both components are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Pixel maps a normalized point onto a width x height surface.
// Halves round up (toward +Inf), so -2.5 maps to -2 and 2.5 to 3.
func (p Point) Pixel(width, height int) image.Point {
	return image.Point{
		X: roundHalfUp(p.X * float64(width)),
		Y: roundHalfUp(p.Y * float64(height)),
	}
}

// roundHalfUp rounds v to the nearest integer, halves toward +Inf, and
// clamps the result to ±maxPixelCoord.
func roundHalfUp(v float64) int {
	r := math.Floor(v + 0.5)
	if r > maxPixelCoord {
		return maxPixelCoord
	}
	if r < -maxPixelCoord {
		return -maxPixelCoord
	}
	return int(r)
}
