// Package heatmap renders signal-coverage heatmaps from sparse samples.
//
// # Overview
//
// A heatmap is built from an ordered set of samples. Each sample carries a
// normalized position on the output surface and an optional signal strength
// in [0, 100]. Every redraw recomputes the whole frame from the current
// samples: there is no incremental path, so the pixels only ever depend on
// what is in the [Store].
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/heatmap"
//	    "github.com/gogpu/heatmap/surface"
//	)
//
//	store := heatmap.NewStore()
//	s := surface.NewImageSurface(640, 480)
//	r := heatmap.NewRenderer(store, s)
//	defer r.Close()
//
//	// Every mutation triggers a full redraw.
//	_ = store.Append(heatmap.Sample{
//	    Position: heatmap.Pt(0.5, 0.5),
//	    Strength: heatmap.StrengthOf(73),
//	})
//
//	frame := r.Frame() // *image.RGBA
//
// # Pipeline
//
// A redraw runs four stages in a fixed order:
//   - Density accumulation: each sample becomes a soft radial falloff,
//     composited source-over into an [IntensityBuffer].
//   - Colorization: intensity is mapped through the [Ramp] into an RGBA
//     raster whose alpha grows with intensity (see [Colorize]).
//   - Blit: the raster is drawn over a light background.
//   - Markers: a small outlined disc per sample, colored by its own
//     strength (see [DrawMarkers]).
//
// # Coordinate System
//
// Positions are normalized to the surface: (0,0) is the top-left corner,
// (1,1) the bottom-right. Positions outside [0,1] are legal and are clipped
// by the surface bounds.
//
// # Concurrency
//
// The engine is synchronous and does no locking. A [Store] and its
// [Renderer] must be driven from one goroutine at a time.
package heatmap

// Version information
const (
	// Version is the current version of the library
	Version = "0.3.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 3

	// VersionPatch is the patch version
	VersionPatch = 0
)
