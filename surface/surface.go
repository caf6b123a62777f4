// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"image/color"
)

// Surface is the raster target a heatmap frame is composited into.
//
// A Surface has a fixed size, accepts RGBA pixel blocks and a small set of
// vector shapes, and can be read back after compositing. Shapes and
// blocks that fall partly or fully outside the surface are clipped.
//
// Surfaces are NOT thread-safe. Each surface should be used from a single
// goroutine, or external synchronization must be used.
//
// Example usage:
//
//	s := surface.NewImageSurface(800, 600)
//	defer s.Close()
//
//	s.Clear(color.Transparent)
//	s.FillRect(s.Bounds(), color.White)
//	s.FillCircle(400, 300, 8, color.RGBA{48, 200, 88, 255})
//	img := s.Snapshot()
type Surface interface {
	// Width returns the surface width in pixels.
	Width() int

	// Height returns the surface height in pixels.
	Height() int

	// Bounds returns the surface rectangle, anchored at (0, 0).
	Bounds() image.Rectangle

	// Clear replaces every pixel with c, ignoring what was there.
	Clear(c color.Color)

	// FillRect composites c over the pixels of r.
	FillRect(r image.Rectangle, c color.Color)

	// FillCircle composites an anti-aliased filled disc.
	FillCircle(cx, cy, radius float64, c color.Color)

	// StrokeCircle composites an anti-aliased ring of the given line width
	// centered on the circle's rim.
	StrokeCircle(cx, cy, radius, width float64, c color.Color)

	// DrawImage composites img over the surface with img.Bounds().Min
	// placed at at.
	DrawImage(img image.Image, at image.Point)

	// Snapshot returns the current surface contents as an RGBA image.
	// The returned image is a copy; modifications to it do not affect the surface.
	Snapshot() *image.RGBA

	// Close releases all resources associated with the surface.
	// After Close, the surface must not be used.
	// Close is idempotent; multiple calls are safe.
	Close() error
}
