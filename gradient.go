package heatmap

import (
	"slices"
	"sort"
)

// GradientStop is a scalar value at a position along a gradient.
// Falloff curves are described by stops whose Value is the fraction of the
// peak brightness at that offset.
type GradientStop struct {
	Offset float64 // Position in gradient, 0.0 to 1.0
	Value  float64 // Fraction of peak brightness, 0.0 to 1.0
}

// DefaultFalloffStops fade linearly from full brightness at the inner
// radius to nothing at the outer radius.
var DefaultFalloffStops = []GradientStop{
	{Offset: 0, Value: 1},
	{Offset: 1, Value: 0},
}

// sortStops returns a copy of stops sorted by offset.
func sortStops(stops []GradientStop) []GradientStop {
	if len(stops) == 0 {
		return stops
	}

	// Create a copy to avoid modifying the original
	sorted := slices.Clone(stops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})
	return sorted
}

// valueAtOffset returns the interpolated stop value at t. Stops must be
// sorted. Offsets outside the stop range take the nearest edge value.
func valueAtOffset(sorted []GradientStop, t float64) float64 {
	// Edge case: no stops
	if len(sorted) == 0 {
		return 0
	}

	// Edge case: single stop
	if len(sorted) == 1 {
		return sorted[0].Value
	}

	t = clamp01(t)

	idx := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].Offset >= t
	})

	if idx == 0 {
		return sorted[0].Value
	}
	if idx >= len(sorted) {
		return sorted[len(sorted)-1].Value
	}

	stop1 := sorted[idx-1]
	stop2 := sorted[idx]

	// Avoid division by zero for coincident stops
	if stop2.Offset == stop1.Offset {
		return stop1.Value
	}

	localT := (t - stop1.Offset) / (stop2.Offset - stop1.Offset)
	return stop1.Value + (stop2.Value-stop1.Value)*localT
}
