package heatmap

import (
	"image"
	"math"
)

// RadialFalloff is a circular brightness gradient: Peak at and inside
// StartRadius, fading along Stops to the last stop at EndRadius, and padded
// with the edge stop values beyond.
//
// It is the scalar counterpart of a canvas radial gradient whose color
// stops are all white with varying alpha.
//
// Example:
//
//	f := heatmap.NewRadialFalloff(320, 240, 2, 120, 0.62)
//	a := f.At(330.5, 240.5) // brightness in [0, 0.62]
type RadialFalloff struct {
	Center      Point          // Center of the falloff circle, in pixels
	StartRadius float64        // Radius where the gradient begins (t=0)
	EndRadius   float64        // Radius where the gradient ends (t=1)
	Peak        float64        // Brightness at t=0, in [0, 1]
	Stops       []GradientStop // Shape of the decay, sorted by offset
}

// NewRadialFalloff creates a falloff around (cx, cy) using
// DefaultFalloffStops.
func NewRadialFalloff(cx, cy, startRadius, endRadius, peak float64) *RadialFalloff {
	return &RadialFalloff{
		Center:      Point{X: cx, Y: cy},
		StartRadius: startRadius,
		EndRadius:   endRadius,
		Peak:        clamp01(peak),
		Stops:       DefaultFalloffStops,
	}
}

// WithStops replaces the decay shape. The stops are copied and sorted.
// Returns the falloff for method chaining.
func (f *RadialFalloff) WithStops(stops []GradientStop) *RadialFalloff {
	f.Stops = sortStops(stops)
	return f
}

// At returns the brightness at (x, y).
func (f *RadialFalloff) At(x, y float64) float64 {
	// Handle degenerate gradient (zero radius difference)
	radiusDiff := f.EndRadius - f.StartRadius
	if radiusDiff <= 0 {
		return 0
	}

	t := f.computeT(x, y)
	return f.Peak * clamp01(valueAtOffset(f.Stops, t))
}

// computeT calculates the gradient parameter for a point:
// t = (distance - startRadius) / (endRadius - startRadius).
func (f *RadialFalloff) computeT(x, y float64) float64 {
	dx := x - f.Center.X
	dy := y - f.Center.Y
	distance := math.Sqrt(dx*dx + dy*dy)
	return (distance - f.StartRadius) / (f.EndRadius - f.StartRadius)
}

// Bounds returns the pixel rectangle covered by the falloff's outer circle.
func (f *RadialFalloff) Bounds() image.Rectangle {
	r := math.Ceil(f.EndRadius)
	return image.Rect(
		int(math.Floor(f.Center.X-r)),
		int(math.Floor(f.Center.Y-r)),
		int(math.Ceil(f.Center.X+r)),
		int(math.Ceil(f.Center.Y+r)),
	)
}
