package heatmap

import (
	"image"
	"image/color"
	"testing"
)

func TestColorize(t *testing.T) {
	src := NewIntensityBuffer(4, 1)
	copy(src.Pix(), []uint8{0, 1, 128, 255})

	dst := Colorize(nil, src, DefaultRamp, DefaultHeatOpacity)
	if dst.Bounds() != image.Rect(0, 0, 4, 1) {
		t.Fatalf("Bounds() = %v", dst.Bounds())
	}

	tests := []struct {
		name string
		x    int
		want color.NRGBA
	}{
		{"zero is transparent", 0, color.NRGBA{}},
		{"faintest is weak and almost clear", 1, color.NRGBA{R: 220, G: 41, B: 40, A: 1}},
		{"middle", 2, color.NRGBA{R: 229, G: 200, B: 50, A: 75}},
		{"brightest is strong at max alpha", 3, color.NRGBA{R: 48, G: 200, B: 88, A: 150}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dst.NRGBAAt(tt.x, 0); got != tt.want {
				t.Errorf("pixel %d = %v, want %v", tt.x, got, tt.want)
			}
		})
	}
}

func TestColorizeReusesDestination(t *testing.T) {
	src := NewIntensityBuffer(2, 2)
	dst := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	if got := Colorize(dst, src, DefaultRamp, 255); got != dst {
		t.Error("matching destination was not reused")
	}

	wrong := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	if got := Colorize(wrong, src, DefaultRamp, 255); got == wrong || got.Bounds() != src.Bounds() {
		t.Error("mismatched destination should be replaced")
	}
}

func TestColorizeOverwritesStalePixels(t *testing.T) {
	src := NewIntensityBuffer(1, 1)
	dst := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	dst.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 4})

	Colorize(dst, src, DefaultRamp, DefaultHeatOpacity)
	if got := dst.NRGBAAt(0, 0); got != (color.NRGBA{}) {
		t.Errorf("stale pixel = %v, want transparent", got)
	}
}
