package heatmap

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/heatmap/surface"
)

func newTestRenderer(t *testing.T, w, h int, opts ...Option) (*Store, *Renderer) {
	t.Helper()
	s := surface.NewImageSurface(w, h)
	st := NewStore()
	r := NewRenderer(st, s, opts...)
	t.Cleanup(func() {
		_ = r.Close()
		_ = s.Close()
	})
	return st, r
}

func TestRendererEmptyStoreIsBackground(t *testing.T) {
	_, r := newTestRenderer(t, 64, 48)

	img := r.Frame()
	white := color.RGBA{255, 255, 255, 255}
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			if got := img.RGBAAt(x, y); got != white {
				t.Fatalf("pixel (%d,%d) = %v, want white", x, y, got)
			}
		}
	}
	if r.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1 (initial frame)", r.Frames())
	}
}

func TestRendererSingleStrongSample(t *testing.T) {
	st, r := newTestRenderer(t, 400, 300)
	if err := st.Append(sampleAt(0.5, 0.5, 100)); err != nil {
		t.Fatal(err)
	}

	if got := r.Intensity().At(200, 150); got != 158 {
		t.Errorf("center intensity = %d, want 158", got)
	}

	img := r.Frame()
	if got := img.RGBAAt(200, 150); got != (color.RGBA{48, 200, 88, 255}) {
		t.Errorf("marker center = %v, want strong color", got)
	}
	// Outside the marker the heat layer tints the white background.
	if got := img.RGBAAt(230, 150); got == (color.RGBA{255, 255, 255, 255}) {
		t.Error("heat layer not visible next to the marker")
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("corner = %v, want untouched background", got)
	}
}

func TestRendererUnknownStrengthMatchesFallback(t *testing.T) {
	st1, r1 := newTestRenderer(t, 200, 150)
	st2, r2 := newTestRenderer(t, 200, 150)

	if err := st1.Append(Sample{Position: Pt(0.1, 0.1)}); err != nil {
		t.Fatal(err)
	}
	if err := st2.Append(sampleAt(0.1, 0.1, 30)); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(r1.Frame().Pix, r2.Frame().Pix) {
		t.Error("unknown strength renders differently from strength 30")
	}
}

func TestRendererLaterMarkerOccludes(t *testing.T) {
	st, r := newTestRenderer(t, 100, 100)
	st.Replace([]Sample{sampleAt(0.5, 0.5, 0), sampleAt(0.5, 0.5, 100)})

	if got := r.Frame().RGBAAt(50, 50); got != (color.RGBA{48, 200, 88, 255}) {
		t.Errorf("center = %v, want strong color", got)
	}
}

func TestRendererDeterministic(t *testing.T) {
	samples := []Sample{sampleAt(0.2, 0.2, 10), sampleAt(0.7, 0.6, 80), {Position: Pt(0.4, 0.9)}}

	st, r := newTestRenderer(t, 160, 120)
	st.Replace(samples)
	first := r.Frame()

	st.Clear()
	st.Replace(samples)
	if !bytes.Equal(first.Pix, r.Frame().Pix) {
		t.Error("same samples produced different frames")
	}
}

func TestRendererClearRestoresBackground(t *testing.T) {
	_, empty := newTestRenderer(t, 80, 60)
	st, r := newTestRenderer(t, 80, 60)

	if err := st.Append(sampleAt(0.5, 0.5, 60)); err != nil {
		t.Fatal(err)
	}
	st.Clear()

	if !bytes.Equal(empty.Frame().Pix, r.Frame().Pix) {
		t.Error("cleared store did not return to the empty frame")
	}
}

func TestRendererRedrawsOnEveryMutation(t *testing.T) {
	st, r := newTestRenderer(t, 32, 32)

	var frames []*image.RGBA
	r.OnFrame(func(f *image.RGBA) { frames = append(frames, f) })

	_ = st.Append(sampleAt(0.5, 0.5, 50))
	st.Replace(nil)
	st.Clear()

	if len(frames) != 3 {
		t.Fatalf("hook saw %d frames, want 3", len(frames))
	}
	if r.Frames() != 4 {
		t.Errorf("Frames() = %d, want 4", r.Frames())
	}
	if frames[0].Bounds() != image.Rect(0, 0, 32, 32) {
		t.Errorf("frame bounds = %v", frames[0].Bounds())
	}
}

func TestRendererClose(t *testing.T) {
	st, r := newTestRenderer(t, 16, 16)

	if err := r.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}

	_ = st.Append(sampleAt(0.5, 0.5, 50))
	if r.Frames() != 1 {
		t.Errorf("closed renderer redrew: Frames() = %d", r.Frames())
	}
	if r.Frame() != nil {
		t.Error("Frame() after Close should be nil")
	}
}

func TestRendererOptions(t *testing.T) {
	t.Run("transparent background", func(t *testing.T) {
		_, r := newTestRenderer(t, 10, 10, WithBackground(nil))
		if got := r.Frame().RGBAAt(0, 0); got.A != 0 {
			t.Errorf("pixel = %v, want transparent", got)
		}
	})

	t.Run("background color", func(t *testing.T) {
		_, r := newTestRenderer(t, 10, 10, WithBackground(color.Black))
		if got := r.Frame().RGBAAt(3, 3); got != (color.RGBA{0, 0, 0, 255}) {
			t.Errorf("pixel = %v, want black", got)
		}
	})

	t.Run("no markers", func(t *testing.T) {
		st, r := newTestRenderer(t, 100, 100, WithMarkerStyle(MarkerStyle{}))
		_ = st.Append(sampleAt(0.5, 0.5, 100))
		if got := r.Frame().RGBAAt(50, 50); got == (color.RGBA{48, 200, 88, 255}) {
			t.Error("marker drawn although disabled")
		}
	})

	t.Run("heat opacity zero hides heat layer", func(t *testing.T) {
		st, r := newTestRenderer(t, 100, 100, WithHeatOpacity(0), WithMarkerStyle(MarkerStyle{}))
		_ = st.Append(sampleAt(0.5, 0.5, 100))
		if got := r.Frame().RGBAAt(50, 50); got != (color.RGBA{255, 255, 255, 255}) {
			t.Errorf("pixel = %v, want white", got)
		}
	})

	t.Run("custom ramp colors markers", func(t *testing.T) {
		blue := color.NRGBA{0, 0, 255, 255}
		st, r := newTestRenderer(t, 100, 100, WithRamp(Ramp{Weak: blue, Mid: blue, Strong: blue}))
		_ = st.Append(sampleAt(0.5, 0.5, 70))
		if got := r.Frame().RGBAAt(50, 50); got != (color.RGBA{0, 0, 255, 255}) {
			t.Errorf("marker = %v, want blue", got)
		}
	})

	t.Run("falloff", func(t *testing.T) {
		f := DefaultFalloff
		f.MinRadius, f.RadiusRange = 5, 0
		st, r := newTestRenderer(t, 100, 100, WithFalloff(f), WithMarkerStyle(MarkerStyle{}))
		_ = st.Append(sampleAt(0.5, 0.5, 100))
		if got := r.Intensity().At(60, 50); got != 0 {
			t.Errorf("intensity 10px out = %d, want 0 with a 5px falloff", got)
		}
	})
}
