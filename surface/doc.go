// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface provides the raster target a heatmap frame is drawn into.
//
// Surface decouples the compositing steps of a frame (background fill,
// heat layer blit, marker discs) from the pixel storage behind them. The
// renderer only talks to the Surface interface, so the same frame can be
// produced into an in-memory image, a window-system buffer, or a test
// double.
//
// # Surface Types
//
//   - ImageSurface: CPU rendering to *image.RGBA. Shapes are rasterized
//     with golang.org/x/image/vector, blits use golang.org/x/image/draw.
//
// # Registry
//
// Backends register under a name with a priority. The "image" backend is
// registered at init:
//
//	surface.Register("fb", 50, newFramebufferSurface, framebufferPresent)
//
//	// Later:
//	s, err := surface.NewSurfaceByName("fb", 800, 600)
//
// # Usage
//
//	s := surface.NewImageSurface(800, 600)
//	defer s.Close()
//
//	s.Clear(color.Transparent)
//	s.FillRect(s.Bounds(), color.White)
//	s.FillCircle(400, 300, 8, color.RGBA{48, 200, 88, 255})
//	s.StrokeCircle(400, 300, 8, 2, color.RGBA{17, 17, 17, 255})
//
//	img := s.Snapshot()
//
// # Coordinates
//
// All coordinates are pixels with the origin at the top-left corner. A
// pixel (x, y) covers the unit square [x, x+1) x [y, y+1).
package surface
