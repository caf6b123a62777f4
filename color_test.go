package heatmap

import (
	"image/color"
	"math"
	"testing"
)

func TestRampAt(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		want    color.NRGBA
	}{
		{"zero is weak", 0, WeakColor},
		{"half is mid", 0.5, MidColor},
		{"one is strong", 1, StrongColor},
		{"quarter", 0.25, color.NRGBA{R: 225, G: 120, B: 45, A: 255}},
		{"three quarters", 0.75, color.NRGBA{R: 139, G: 200, B: 69, A: 255}},
		{"fallback", 0.3, color.NRGBA{R: 226, G: 136, B: 46, A: 255}},
		{"below range clamps", -1, WeakColor},
		{"above range clamps", 1.5, StrongColor},
		{"negative infinity", math.Inf(-1), WeakColor},
		{"positive infinity", math.Inf(1), StrongColor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ColorAt(tt.percent); got != tt.want {
				t.Errorf("ColorAt(%v) = %v, want %v", tt.percent, got, tt.want)
			}
		})
	}
}

func TestRampAtNaNUsesFallback(t *testing.T) {
	if got, want := ColorAt(math.NaN()), ColorAt(FallbackStrength/100.0); got != want {
		t.Errorf("ColorAt(NaN) = %v, want %v", got, want)
	}
}

func TestRampMonotonicGreen(t *testing.T) {
	prev := ColorAt(0)
	for i := 1; i <= 1000; i++ {
		c := ColorAt(float64(i) / 1000)
		if c.G < prev.G {
			t.Fatalf("green decreased at %v: %d -> %d", float64(i)/1000, prev.G, c.G)
		}
		if c.A != 255 {
			t.Fatalf("alpha at %v = %d, want 255", float64(i)/1000, c.A)
		}
		prev = c
	}
}

func TestRampContinuousAtMid(t *testing.T) {
	below := ColorAt(0.5 - 1e-9)
	if diff := int(MidColor.R) - int(below.R); diff < -1 || diff > 1 {
		t.Errorf("red jumps at mid: %d vs %d", below.R, MidColor.R)
	}
	if diff := int(MidColor.G) - int(below.G); diff < -1 || diff > 1 {
		t.Errorf("green jumps at mid: %d vs %d", below.G, MidColor.G)
	}
}

func TestRampStrengthColor(t *testing.T) {
	tests := []struct {
		name string
		s    Strength
		want color.NRGBA
	}{
		{"unknown uses fallback", Unknown, ColorAt(0.3)},
		{"thirty", StrengthOf(30), ColorAt(0.3)},
		{"clamped high", StrengthOf(150), StrongColor},
		{"clamped low", StrengthOf(-10), WeakColor},
		{"NaN uses fallback", StrengthOf(math.NaN()), ColorAt(0.3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRamp.StrengthColor(tt.s); got != tt.want {
				t.Errorf("StrengthColor(%v) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestCustomRamp(t *testing.T) {
	r := Ramp{
		Weak:   color.NRGBA{0, 0, 0, 255},
		Mid:    color.NRGBA{100, 100, 100, 255},
		Strong: color.NRGBA{200, 200, 200, 255},
	}
	if got := r.At(0.25); got != (color.NRGBA{50, 50, 50, 255}) {
		t.Errorf("At(0.25) = %v", got)
	}
	if got := r.At(0.75); got != (color.NRGBA{150, 150, 150, 255}) {
		t.Errorf("At(0.75) = %v", got)
	}
}

func TestHex(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#111111", color.NRGBA{0x11, 0x11, 0x11, 0xff}, false},
		{"30c858", color.NRGBA{48, 200, 88, 255}, false},
		{"#fff", color.NRGBA{255, 255, 255, 255}, false},
		{"#f008", color.NRGBA{255, 0, 0, 0x88}, false},
		{"#DC282880", color.NRGBA{220, 40, 40, 0x80}, false},
		{"", color.NRGBA{}, true},
		{"#12", color.NRGBA{}, true},
		{"#gggggg", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Hex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Hex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Hex(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMustHexPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustHex did not panic on malformed input")
		}
	}()
	_ = MustHex("nope")
}
