package heatmap

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/heatmap/surface"
)

// UnknownBadgeColor fills the badge when no strength is known.
var UnknownBadgeColor = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// Badge geometry in pixels.
const (
	badgeHeight   = 24
	badgePadding  = 10
	badgeFontSize = 14
)

var (
	badgeFontOnce sync.Once
	badgeFont     *opentype.Font
	badgeFontErr  error
)

// BadgeColor returns the badge fill for s: the ramp color of its
// effective strength, or UnknownBadgeColor when s is unknown.
func BadgeColor(s Strength, ramp Ramp) color.NRGBA {
	if !s.Known() {
		return UnknownBadgeColor
	}
	return ramp.StrengthColor(s)
}

// RenderBadge draws the live signal pill: a rounded rectangle in
// BadgeColor with the strength text ("73%" or "N/A") in white.
func RenderBadge(s Strength, ramp Ramp) (*image.RGBA, error) {
	face, err := badgeFace()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = face.Close()
	}()

	text := s.String()
	w := font.MeasureString(face, text).Ceil() + 2*badgePadding
	w = max(w, badgeHeight)
	r := float64(badgeHeight) / 2

	surf := surface.NewImageSurface(w, badgeHeight)
	defer surf.Close()

	bg := BadgeColor(s, ramp)
	surf.FillRect(image.Rect(int(r), 0, w-int(r), badgeHeight), bg)
	surf.FillCircle(r, r, r, bg)
	surf.FillCircle(float64(w)-r, r, r, bg)

	m := face.Metrics()
	baseline := (badgeHeight + m.Ascent.Ceil() - m.Descent.Ceil()) / 2
	d := &font.Drawer{
		Dst:  surf.Image(),
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(badgePadding, baseline),
	}
	d.DrawString(text)

	return surf.Snapshot(), nil
}

// badgeFace returns a new face of the embedded Go Regular font. The font
// itself is parsed once.
func badgeFace() (font.Face, error) {
	badgeFontOnce.Do(func() {
		badgeFont, badgeFontErr = opentype.Parse(goregular.TTF)
	})
	if badgeFontErr != nil {
		return nil, fmt.Errorf("heatmap: badge font: %w", badgeFontErr)
	}
	face, err := opentype.NewFace(badgeFont, &opentype.FaceOptions{
		Size:    badgeFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("heatmap: badge face: %w", err)
	}
	return face, nil
}
