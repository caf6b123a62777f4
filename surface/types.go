// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import "image/color"

// Options configures surface creation.
type Options struct {
	// Width is the surface width in pixels.
	Width int

	// Height is the surface height in pixels.
	Height int

	// BackgroundColor is the initial background color.
	// Default: transparent
	BackgroundColor color.Color
}

// DefaultOptions returns Options with default values.
func DefaultOptions(width, height int) Options {
	return Options{
		Width:  width,
		Height: height,
	}
}
