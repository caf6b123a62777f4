package heatmap

import (
	"image"
	"image/color"
	"time"

	"github.com/gogpu/heatmap/surface"
)

// FrameHook receives a copy of every completed frame.
type FrameHook func(frame *image.RGBA)

// Renderer composites heatmap frames from a Store onto a Surface.
//
// The renderer subscribes to the store at creation and redraws the whole
// frame after every mutation, so the surface always shows exactly the
// current samples. Each frame is built in four layers:
//
//  1. the surface is cleared and filled with the background color;
//  2. the samples are accumulated into the intensity buffer;
//  3. the buffer is colorized and composited over the background;
//  4. one marker per sample is drawn on top.
//
// Renderer is not safe for concurrent use. Mutate the store and call
// Render from the same goroutine.
type Renderer struct {
	store *Store
	surf  surface.Surface
	opts  options

	// Reused between frames.
	intensity *IntensityBuffer
	heat      *image.NRGBA

	hooks  []FrameHook
	cancel func()
	frames uint64
	last   time.Duration
	closed bool
}

// NewRenderer creates a renderer drawing store onto s and renders the
// first frame.
//
// Example:
//
//	store := heatmap.NewStore()
//	s := surface.NewImageSurface(800, 600)
//	r := heatmap.NewRenderer(store, s)
//	defer r.Close()
//
//	_ = store.Append(heatmap.Sample{Position: heatmap.Pt(0.5, 0.5), Strength: heatmap.StrengthOf(80)})
//	img := r.Frame()
func NewRenderer(store *Store, s surface.Surface, opts ...Option) *Renderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Renderer{
		store:     store,
		surf:      s,
		opts:      o,
		intensity: NewIntensityBuffer(s.Width(), s.Height()),
	}
	r.cancel = store.Subscribe(func(m Mutation) {
		Logger().Debug("heatmap: store mutated", "kind", m.Kind, "samples", m.Len)
		r.Render()
	})
	r.Render()
	return r
}

// Render redraws the full frame from the current store contents.
func (r *Renderer) Render() {
	if r.closed {
		return
	}
	start := time.Now()
	samples := r.store.view()

	r.surf.Clear(color.Transparent)
	if r.opts.background != nil {
		r.surf.FillRect(r.surf.Bounds(), r.opts.background)
	}

	Accumulate(r.intensity, samples, r.opts.falloff)
	r.heat = Colorize(r.heat, r.intensity, r.opts.ramp, r.opts.heatOpacity)
	r.surf.DrawImage(r.heat, image.Point{})

	DrawMarkers(r.surf, samples, r.opts.ramp, r.opts.marker)

	r.frames++
	r.last = time.Since(start)
	Logger().Debug("heatmap: frame rendered",
		"frame", r.frames, "samples", len(samples), "duration", r.last)

	if len(r.hooks) > 0 {
		frame := r.surf.Snapshot()
		for _, h := range r.hooks {
			h(frame)
		}
	}
}

// Frame returns a copy of the current surface contents.
func (r *Renderer) Frame() *image.RGBA {
	if r.closed {
		return nil
	}
	return r.surf.Snapshot()
}

// Intensity returns the intensity buffer of the last frame. The buffer is
// overwritten by the next Render.
func (r *Renderer) Intensity() *IntensityBuffer {
	return r.intensity
}

// OnFrame registers h to receive every subsequent frame. All hooks share
// the same frame copy.
func (r *Renderer) OnFrame(h FrameHook) {
	r.hooks = append(r.hooks, h)
}

// Frames returns the number of frames rendered so far.
func (r *Renderer) Frames() uint64 {
	return r.frames
}

// LastDuration returns how long the last frame took.
func (r *Renderer) LastDuration() time.Duration {
	return r.last
}

// Close unsubscribes from the store. The surface is left open; its owner
// closes it. Close is idempotent.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.cancel()
	r.hooks = nil
	return nil
}
