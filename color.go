package heatmap

import (
	"fmt"
	"image/color"
	"math"
)

// FallbackStrength is the strength assumed for samples whose strength is
// unknown.
const FallbackStrength = 30

// Ramp is a three-stop piecewise-linear color gradient running from a weak
// color through a mid color to a strong color.
//
// The same ramp colors the status badge, the heat layer and the sample
// markers, so they always agree.
type Ramp struct {
	Weak   color.NRGBA
	Mid    color.NRGBA
	Strong color.NRGBA
}

// Default ramp stops.
var (
	WeakColor   = color.NRGBA{R: 220, G: 40, B: 40, A: 255}
	MidColor    = color.NRGBA{R: 230, G: 200, B: 50, A: 255}
	StrongColor = color.NRGBA{R: 48, G: 200, B: 88, A: 255}
)

// DefaultRamp is the red -> yellow -> green coverage ramp.
var DefaultRamp = Ramp{Weak: WeakColor, Mid: MidColor, Strong: StrongColor}

// ColorAt evaluates DefaultRamp at percent.
func ColorAt(percent float64) color.NRGBA {
	return DefaultRamp.At(percent)
}

// At returns the ramp color at percent in [0, 1].
//
// Values below 0.5 interpolate Weak -> Mid with t = percent/0.5, values at
// or above 0.5 interpolate Mid -> Strong with t = (percent-0.5)/0.5. Input
// is clamped to [0, 1]; NaN is treated as the fallback strength. The
// returned color is always opaque.
func (r Ramp) At(percent float64) color.NRGBA {
	if math.IsNaN(percent) {
		percent = FallbackStrength / 100.0
	}
	percent = clamp01(percent)

	if percent < 0.5 {
		return lerpChannels(r.Weak, r.Mid, percent/0.5)
	}
	return lerpChannels(r.Mid, r.Strong, (percent-0.5)/0.5)
}

// StrengthColor returns the ramp color for a sample strength, resolving
// unknown strengths to FallbackStrength.
func (r Ramp) StrengthColor(s Strength) color.NRGBA {
	return r.At(s.Effective() / 100)
}

// lerpChannels interpolates each channel as round(lo*(1-t) + hi*t).
func lerpChannels(lo, hi color.NRGBA, t float64) color.NRGBA {
	return color.NRGBA{
		R: lerpByte(lo.R, hi.R, t),
		G: lerpByte(lo.G, hi.G, t),
		B: lerpByte(lo.B, hi.B, t),
		A: 255,
	}
}

func lerpByte(lo, hi uint8, t float64) uint8 {
	v := math.Floor(float64(lo)*(1-t) + float64(hi)*t + 0.5)
	return uint8(clamp255(v))
}

// Hex parses a hex color string.
// Supports formats: "RGB", "RGBA", "RRGGBB", "RRGGBBAA", with or without a
// leading '#'.
func Hex(hex string) (color.NRGBA, error) {
	s := hex
	if s != "" && s[0] == '#' {
		s = s[1:]
	}

	var r, g, b uint32
	a := uint32(255)
	ok := true

	switch len(s) {
	case 3: // RGB
		ok = parseHex(s[0:1], &r) && parseHex(s[1:2], &g) && parseHex(s[2:3], &b)
		r, g, b = r*17, g*17, b*17
	case 4: // RGBA
		ok = parseHex(s[0:1], &r) && parseHex(s[1:2], &g) && parseHex(s[2:3], &b) && parseHex(s[3:4], &a)
		r, g, b, a = r*17, g*17, b*17, a*17
	case 6: // RRGGBB
		ok = parseHex(s[0:2], &r) && parseHex(s[2:4], &g) && parseHex(s[4:6], &b)
	case 8: // RRGGBBAA
		ok = parseHex(s[0:2], &r) && parseHex(s[2:4], &g) && parseHex(s[4:6], &b) && parseHex(s[6:8], &a)
	default:
		ok = false
	}
	if !ok {
		return color.NRGBA{}, fmt.Errorf("heatmap: invalid hex color %q", hex)
	}

	//nolint:gosec // G115: every component is at most 0xff
	return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(a)}, nil
}

// MustHex is like Hex but panics on malformed input. Intended for package
// level color literals.
func MustHex(hex string) color.NRGBA {
	c, err := Hex(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// parseHex is a helper for hex parsing
func parseHex(s string, val *uint32) bool {
	*val = 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		*val *= 16
		switch {
		case '0' <= c && c <= '9':
			*val += uint32(c - '0')
		case 'a' <= c && c <= 'f':
			*val += uint32(c - 'a' + 10)
		case 'A' <= c && c <= 'F':
			*val += uint32(c - 'A' + 10)
		default:
			return false
		}
	}
	return true
}

// clamp01 clamps a value to [0, 1] range.
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// clamp255 restricts a value to [0, 255] range.
func clamp255(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return x
}
