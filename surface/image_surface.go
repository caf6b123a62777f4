// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// circleKappa is the cubic Bézier control distance for a quarter circle.
const circleKappa = 0.5522847498307936

// ImageSurface is a CPU-based surface that renders to an *image.RGBA.
//
// Discs and rings are rasterized with golang.org/x/image/vector, which
// computes exact area coverage per pixel; pixels fully inside a shape get
// the shape color unchanged.
//
// Example:
//
//	s := surface.NewImageSurface(800, 600)
//	defer s.Close()
//
//	s.Clear(color.White)
//	s.FillCircle(400, 300, 100, color.RGBA{255, 0, 0, 255})
//
//	img := s.Snapshot()
type ImageSurface struct {
	width  int
	height int
	img    *image.RGBA

	// z is reused between shapes to avoid reallocating coverage buffers.
	z *vector.Rasterizer

	// closed tracks if Close has been called
	closed bool
}

// NewImageSurface creates a new CPU-based surface with the given dimensions.
func NewImageSurface(width, height int) *ImageSurface {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}

	return &ImageSurface{
		width:  width,
		height: height,
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		z:      vector.NewRasterizer(0, 0),
	}
}

// NewImageSurfaceFromImage creates a surface backed by an existing image.
// The surface will render into the provided image directly. The image
// must be anchored at (0, 0).
func NewImageSurfaceFromImage(img *image.RGBA) *ImageSurface {
	bounds := img.Bounds()
	return &ImageSurface{
		width:  bounds.Dx(),
		height: bounds.Dy(),
		img:    img,
		z:      vector.NewRasterizer(0, 0),
	}
}

// Width returns the surface width.
func (s *ImageSurface) Width() int {
	return s.width
}

// Height returns the surface height.
func (s *ImageSurface) Height() int {
	return s.height
}

// Bounds returns the surface rectangle.
func (s *ImageSurface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

// Clear fills the entire surface with the given color.
func (s *ImageSurface) Clear(c color.Color) {
	if s.closed {
		return
	}
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// FillRect composites c over r, clipped to the surface.
func (s *ImageSurface) FillRect(r image.Rectangle, c color.Color) {
	if s.closed {
		return
	}
	r = r.Canon().Intersect(s.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(s.img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// FillCircle composites a filled disc.
func (s *ImageSurface) FillCircle(cx, cy, radius float64, c color.Color) {
	if s.closed || !(radius > 0) {
		return
	}
	s.fillRing(cx, cy, radius, 0, c)
}

// StrokeCircle composites a ring of the given width centered on the rim.
func (s *ImageSurface) StrokeCircle(cx, cy, radius, width float64, c color.Color) {
	if s.closed || !(width > 0) || radius < 0 {
		return
	}
	inner := radius - width/2
	if inner < 0 {
		inner = 0
	}
	s.fillRing(cx, cy, radius+width/2, inner, c)
}

// fillRing composites the area between two concentric circles. An inner
// radius of 0 fills the whole disc.
func (s *ImageSurface) fillRing(cx, cy, outer, inner float64, c color.Color) {
	if math.IsNaN(cx) || math.IsNaN(cy) || math.IsInf(cx, 0) || math.IsInf(cy, 0) {
		logger().Warn("surface: skipping circle with non-finite center", "cx", cx, "cy", cy)
		return
	}

	box := image.Rect(
		int(math.Floor(cx-outer))-1,
		int(math.Floor(cy-outer))-1,
		int(math.Ceil(cx+outer))+1,
		int(math.Ceil(cy+outer))+1,
	)
	clip := box.Intersect(s.img.Bounds())
	if clip.Empty() {
		return
	}

	// Rasterize in clip-local coordinates; vector clips anything that
	// falls outside its own bounds.
	ox, oy := cx-float64(clip.Min.X), cy-float64(clip.Min.Y)
	s.z.Reset(clip.Dx(), clip.Dy())
	s.z.DrawOp = draw.Over
	addCircle(s.z, ox, oy, outer, false)
	if inner > 0 {
		// Opposite winding cancels coverage inside the inner circle.
		addCircle(s.z, ox, oy, inner, true)
	}
	s.z.Draw(s.img, clip, image.NewUniform(c), image.Point{})
}

// addCircle appends a closed circle approximated by four cubic Béziers.
func addCircle(z *vector.Rasterizer, cx, cy, r float64, reverse bool) {
	k := r * circleKappa
	p := func(x, y float64) (float32, float32) { return float32(cx + x), float32(cy + y) }

	if !reverse {
		z.MoveTo(p(r, 0))
		cubeTo(z, p, r, k, k, r, 0, r)
		cubeTo(z, p, -k, r, -r, k, -r, 0)
		cubeTo(z, p, -r, -k, -k, -r, 0, -r)
		cubeTo(z, p, k, -r, r, -k, r, 0)
	} else {
		z.MoveTo(p(r, 0))
		cubeTo(z, p, r, -k, k, -r, 0, -r)
		cubeTo(z, p, -k, -r, -r, -k, -r, 0)
		cubeTo(z, p, -r, k, -k, r, 0, r)
		cubeTo(z, p, k, r, r, k, r, 0)
	}
	z.ClosePath()
}

func cubeTo(z *vector.Rasterizer, p func(x, y float64) (float32, float32), x1, y1, x2, y2, x3, y3 float64) {
	ax, ay := p(x1, y1)
	bx, by := p(x2, y2)
	dx, dy := p(x3, y3)
	z.CubeTo(ax, ay, bx, by, dx, dy)
}

// DrawImage composites img over the surface with its top-left corner at
// at, clipped to the surface.
func (s *ImageSurface) DrawImage(img image.Image, at image.Point) {
	if s.closed || img == nil {
		return
	}
	xdraw.Copy(s.img, at, img, img.Bounds(), xdraw.Over, nil)
}

// Snapshot returns a copy of the current surface contents.
func (s *ImageSurface) Snapshot() *image.RGBA {
	if s.closed {
		return nil
	}

	result := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	for y := 0; y < s.height; y++ {
		copy(result.Pix[y*result.Stride:y*result.Stride+4*s.width], s.img.Pix[s.img.PixOffset(0, y):])
	}
	return result
}

// Close releases resources associated with the surface.
func (s *ImageSurface) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.img = nil
	s.z = nil
	return nil
}

// Image returns the underlying image.RGBA.
// This is a direct reference, not a copy.
func (s *ImageSurface) Image() *image.RGBA {
	return s.img
}
