package heatmap

import (
	"image"
	"math"
)

// DefaultHeatOpacity caps the heat layer's alpha so the background stays
// partly visible under the hottest regions.
const DefaultHeatOpacity = 150

// Colorize maps an intensity buffer to a non-premultiplied RGBA raster.
//
// A zero-intensity pixel becomes fully transparent black. Any other pixel
// with brightness b gets the ramp color at t = b/255 and alpha
// round(maxAlpha*t), so brighter accumulated regions read as stronger
// coverage, not just as lighter pixels.
//
// dst must have the same size as src; if it does not, Colorize allocates a
// new raster. The raster written to is returned.
func Colorize(dst *image.NRGBA, src *IntensityBuffer, ramp Ramp, maxAlpha uint8) *image.NRGBA {
	if dst == nil || dst.Rect.Dx() != src.width || dst.Rect.Dy() != src.height {
		dst = image.NewNRGBA(image.Rect(0, 0, src.width, src.height))
	}

	// Every brightness value maps to exactly one color; build the table
	// once per call.
	var lut [256][4]uint8
	for b := 1; b < 256; b++ {
		t := float64(b) / 255
		c := ramp.At(t)
		lut[b] = [4]uint8{c.R, c.G, c.B, uint8(math.Floor(float64(maxAlpha)*t + 0.5))}
	}

	for y := 0; y < src.height; y++ {
		in := src.pix[y*src.width : (y+1)*src.width]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+4*src.width]
		for x, b := range in {
			copy(out[4*x:4*x+4], lut[b][:])
		}
	}
	return dst
}
