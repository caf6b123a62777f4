package heatmap

import (
	"image/color"

	"github.com/gogpu/heatmap/surface"
)

// MarkerStyle describes the disc drawn at every sample position.
type MarkerStyle struct {
	// Radius of the filled disc in pixels. Zero disables markers.
	Radius float64
	// OutlineWidth is the line width of the outline, centered on the rim.
	OutlineWidth float64
	// Outline is the outline color. Nil disables the outline.
	Outline color.Color
}

// DefaultMarkerStyle is an 8px disc with a 2px near-black outline.
var DefaultMarkerStyle = MarkerStyle{
	Radius:       8,
	OutlineWidth: 2,
	Outline:      color.NRGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff},
}

// DrawMarkers draws one marker per sample, in order, so later markers
// cover earlier ones. The fill is the ramp color of the sample's effective
// strength. Samples with non-finite positions are skipped.
func DrawMarkers(s surface.Surface, samples []Sample, ramp Ramp, style MarkerStyle) {
	if !(style.Radius > 0) {
		return
	}
	w, h := s.Width(), s.Height()
	outline := style.Outline != nil && style.OutlineWidth > 0

	for i := range samples {
		sm := &samples[i]
		if !sm.Position.IsFinite() {
			continue
		}
		p := sm.Position.Pixel(w, h)
		cx, cy := float64(p.X), float64(p.Y)

		s.FillCircle(cx, cy, style.Radius, ramp.StrengthColor(sm.Strength))
		if outline {
			s.StrokeCircle(cx, cy, style.Radius, style.OutlineWidth, style.Outline)
		}
	}
}
