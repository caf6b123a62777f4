package heatmap

import "image/color"

// Option configures a Renderer during creation.
// Use functional options to customize how frames look.
//
// Example:
//
//	// Defaults: white background, red -> yellow -> green ramp
//	r := heatmap.NewRenderer(store, s)
//
//	// Dark background, softer heat layer
//	r := heatmap.NewRenderer(store, s,
//	    heatmap.WithBackground(color.Black),
//	    heatmap.WithHeatOpacity(110),
//	)
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	ramp        Ramp
	background  color.Color
	falloff     Falloff
	marker      MarkerStyle
	heatOpacity uint8
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{
		ramp:        DefaultRamp,
		background:  color.White,
		falloff:     DefaultFalloff,
		marker:      DefaultMarkerStyle,
		heatOpacity: DefaultHeatOpacity,
	}
}

// WithRamp sets the color ramp shared by the heat layer and the markers.
func WithRamp(r Ramp) Option {
	return func(o *options) {
		o.ramp = r
	}
}

// WithBackground sets the color painted under the heat layer.
// A nil color leaves the surface transparent.
func WithBackground(c color.Color) Option {
	return func(o *options) {
		o.background = c
	}
}

// WithFalloff replaces the radius and brightness parameters of the
// density accumulator.
func WithFalloff(f Falloff) Option {
	return func(o *options) {
		o.falloff = f
	}
}

// WithMarkerStyle sets how sample markers are drawn.
// A zero Radius disables markers.
func WithMarkerStyle(m MarkerStyle) Option {
	return func(o *options) {
		o.marker = m
	}
}

// WithHeatOpacity caps the alpha of the hottest heat-layer pixel.
func WithHeatOpacity(a uint8) Option {
	return func(o *options) {
		o.heatOpacity = a
	}
}
