package heatmap

import (
	"image"
	"math"
)

// Falloff holds the tunable parameters that turn a sample strength into a
// radial brightness contribution. Distances are output-surface pixels.
type Falloff struct {
	// MinRadius is the falloff radius of a strength-0 sample.
	MinRadius float64
	// RadiusRange is added to MinRadius in proportion to strength/100.
	RadiusRange float64
	// BaseAlpha is the peak brightness of a strength-0 sample.
	BaseAlpha float64
	// AlphaRange is added to BaseAlpha in proportion to strength/100.
	AlphaRange float64
	// InnerRadius is the radius of the solid core held at peak brightness.
	InnerRadius float64
	// Stops shape the decay between InnerRadius and the outer radius.
	// Nil means DefaultFalloffStops.
	Stops []GradientStop
}

// DefaultFalloff gives weak samples a 60px falloff at 0.12 peak and
// full-strength samples 180px at 0.62.
var DefaultFalloff = Falloff{
	MinRadius:   60,
	RadiusRange: 120,
	BaseAlpha:   0.12,
	AlphaRange:  0.5,
	InnerRadius: 2,
}

// Radius returns the outer falloff radius for an effective strength in
// [0, 100].
func (f Falloff) Radius(strength float64) float64 {
	return f.MinRadius + (strength/100)*f.RadiusRange
}

// Alpha returns the peak brightness for an effective strength in [0, 100].
func (f Falloff) Alpha(strength float64) float64 {
	return f.BaseAlpha + (strength/100)*f.AlphaRange
}

// For builds the radial falloff of a sample on a width x height surface.
func (f Falloff) For(s Sample, width, height int) *RadialFalloff {
	px := s.Position.Pixel(width, height)
	strength := s.Strength.Effective()

	rf := NewRadialFalloff(float64(px.X), float64(px.Y), f.InnerRadius, f.Radius(strength), f.Alpha(strength))
	if f.Stops != nil {
		rf.WithStops(f.Stops)
	}
	return rf
}

// IntensityBuffer is a width x height grid of accumulated brightness, one
// byte per pixel. 0 means no sample reaches the pixel.
type IntensityBuffer struct {
	width  int
	height int
	pix    []uint8
}

// NewIntensityBuffer allocates a zeroed buffer.
func NewIntensityBuffer(width, height int) *IntensityBuffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &IntensityBuffer{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height),
	}
}

// Width returns the buffer width.
func (b *IntensityBuffer) Width() int { return b.width }

// Height returns the buffer height.
func (b *IntensityBuffer) Height() int { return b.height }

// Bounds returns the buffer rectangle.
func (b *IntensityBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// Pix returns the raw brightness values in row-major order.
func (b *IntensityBuffer) Pix() []uint8 { return b.pix }

// At returns the brightness at (x, y), or 0 outside the buffer.
func (b *IntensityBuffer) At(x, y int) uint8 {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return 0
	}
	return b.pix[y*b.width+x]
}

// Max returns the largest brightness in the buffer.
func (b *IntensityBuffer) Max() uint8 {
	var m uint8
	for _, v := range b.pix {
		m = max(m, v)
	}
	return m
}

// Reset zeroes the buffer.
func (b *IntensityBuffer) Reset() {
	clear(b.pix)
}

// composite layers brightness a over the pixel at offset i with
// source-over: I' = 255*a + I*(1-a).
func (b *IntensityBuffer) composite(i int, a float64) {
	v := a*255 + float64(b.pix[i])*(1-a)
	b.pix[i] = uint8(clamp255(math.Floor(v + 0.5)))
}

// Accumulate renders every sample as a radial falloff into buf, in order.
// The buffer is zeroed first, so the result depends only on samples.
// Samples with non-finite positions are skipped.
func Accumulate(buf *IntensityBuffer, samples []Sample, f Falloff) {
	buf.Reset()
	bounds := buf.Bounds()

	for i := range samples {
		s := &samples[i]
		if !s.Position.IsFinite() {
			Logger().Warn("heatmap: skipping sample with non-finite position",
				"index", i, "x", s.Position.X, "y", s.Position.Y)
			continue
		}

		rf := f.For(*s, buf.width, buf.height)
		// Explicit clip; the falloff square may lie partly or fully off
		// the surface.
		area := rf.Bounds().Intersect(bounds)
		if area.Empty() {
			continue
		}

		for y := area.Min.Y; y < area.Max.Y; y++ {
			row := y * buf.width
			for x := area.Min.X; x < area.Max.X; x++ {
				// Sample at the pixel center.
				a := rf.At(float64(x)+0.5, float64(y)+0.5)
				if a <= 0 {
					continue
				}
				buf.composite(row+x, a)
			}
		}
	}
}
