package heatmap

import (
	"image"
	"math"
	"testing"
)

func TestSortStops(t *testing.T) {
	in := []GradientStop{{Offset: 1, Value: 0}, {Offset: 0.5, Value: 0.2}, {Offset: 0, Value: 1}}
	got := sortStops(in)

	for i := 1; i < len(got); i++ {
		if got[i].Offset < got[i-1].Offset {
			t.Fatalf("stops not sorted: %v", got)
		}
	}
	if in[0].Offset != 1 {
		t.Error("sortStops modified its input")
	}
	if sortStops(nil) != nil {
		t.Error("sortStops(nil) should return nil")
	}
}

func TestValueAtOffset(t *testing.T) {
	stops := []GradientStop{{Offset: 0, Value: 1}, {Offset: 0.5, Value: 0.25}, {Offset: 1, Value: 0}}

	tests := []struct {
		t    float64
		want float64
	}{
		{-1, 1},
		{0, 1},
		{0.25, 0.625},
		{0.5, 0.25},
		{0.75, 0.125},
		{1, 0},
		{2, 0},
	}
	for _, tt := range tests {
		if got := valueAtOffset(stops, tt.t); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("valueAtOffset(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}

	if got := valueAtOffset(nil, 0.5); got != 0 {
		t.Errorf("no stops = %v, want 0", got)
	}
	if got := valueAtOffset([]GradientStop{{Offset: 0.3, Value: 0.7}}, 0.9); got != 0.7 {
		t.Errorf("single stop = %v, want 0.7", got)
	}
}

func TestRadialFalloffAt(t *testing.T) {
	f := NewRadialFalloff(100, 100, 2, 102, 0.5)

	tests := []struct {
		name string
		x, y float64
		want float64
	}{
		{"center", 100, 100, 0.5},
		{"inside start radius", 101.5, 100, 0.5},
		{"halfway", 152, 100, 0.25},
		{"outer edge", 100, 202, 0},
		{"beyond", 300, 300, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.At(tt.x, tt.y); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("At(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestRadialFalloffDegenerate(t *testing.T) {
	f := NewRadialFalloff(0, 0, 5, 5, 1)
	if got := f.At(0, 0); got != 0 {
		t.Errorf("zero-width falloff At = %v, want 0", got)
	}
}

func TestRadialFalloffPeakClamped(t *testing.T) {
	if f := NewRadialFalloff(0, 0, 0, 10, 3); f.Peak != 1 {
		t.Errorf("Peak = %v, want 1", f.Peak)
	}
}

func TestRadialFalloffWithStops(t *testing.T) {
	// Hold full brightness to the middle, then drop to zero.
	f := NewRadialFalloff(0, 0, 0, 100, 1).WithStops([]GradientStop{
		{Offset: 1, Value: 0},
		{Offset: 0.5, Value: 1},
		{Offset: 0, Value: 1},
	})
	if got := f.At(40, 0); got != 1 {
		t.Errorf("At(40) = %v, want 1", got)
	}
	if got := f.At(75, 0); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("At(75) = %v, want 0.5", got)
	}
}

func TestRadialFalloffBounds(t *testing.T) {
	f := NewRadialFalloff(10, 20, 0, 5.5, 1)
	if got, want := f.Bounds(), image.Rect(4, 14, 16, 26); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
}
