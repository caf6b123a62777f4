// Package hub owns the live heatmap: the authoritative sample store, its
// renderer, the latest link status and the connected websocket clients.
//
// All of that state belongs to a single goroutine started by Run. Other
// goroutines reach it through the exported methods, which queue a command
// and wait for it to finish.
package hub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"time"

	"github.com/gogpu/heatmap"
	"github.com/gogpu/heatmap/internal/metrics"
	"github.com/gogpu/heatmap/internal/samplelog"
	"github.com/gogpu/heatmap/internal/storage"
	"github.com/gogpu/heatmap/surface"
	"github.com/gogpu/heatmap/wire"
)

// ErrClosed is returned by calls made after Run has returned.
var ErrClosed = errors.New("hub: closed")

// DefaultSendBuffer is the per-client outbound queue length.
const DefaultSendBuffer = 32

// Hub is the live heatmap server state.
type Hub struct {
	cmds chan func(*state)
	done chan struct{}

	log        *slog.Logger
	metrics    *metrics.Collector
	db         *storage.DB
	csv        *samplelog.Log
	now        func() time.Time
	sendBuffer int

	backend   string
	width     int
	height    int
	rendering []heatmap.Option

	st *state
}

// state is only touched by the Run goroutine.
type state struct {
	store    *heatmap.Store
	renderer *heatmap.Renderer
	surf     surface.Surface
	status   wire.Status
	clients  map[*client]struct{}
	frame    *image.RGBA
	png      []byte
	gen      uint64
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// WithMetrics records renders, clients and dropped payloads.
func WithMetrics(m *metrics.Collector) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithStorage persists samples and scans, and seeds the hub from the
// database at construction.
func WithStorage(db *storage.DB) Option {
	return func(h *Hub) { h.db = db }
}

// WithSampleLog appends every scan and sample to a CSV log.
func WithSampleLog(l *samplelog.Log) Option {
	return func(h *Hub) { h.csv = l }
}

// WithSurface selects the surface backend and frame size.
func WithSurface(backend string, width, height int) Option {
	return func(h *Hub) {
		h.backend, h.width, h.height = backend, width, height
	}
}

// WithRendererOptions passes options to the heatmap renderer.
func WithRendererOptions(opts ...heatmap.Option) Option {
	return func(h *Hub) { h.rendering = append(h.rendering, opts...) }
}

// WithClock replaces time.Now for sample timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// WithSendBuffer sets the per-client outbound queue length. A client whose
// queue is full is disconnected.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// New builds a hub and renders its first frame. With storage configured,
// the stored samples and the latest scan are loaded first.
func New(ctx context.Context, opts ...Option) (*Hub, error) {
	h := &Hub{
		cmds:       make(chan func(*state)),
		done:       make(chan struct{}),
		log:        slog.New(slog.DiscardHandler),
		now:        time.Now,
		sendBuffer: DefaultSendBuffer,
		backend:    surface.BackendImage,
		width:      800,
		height:     600,
	}
	for _, opt := range opts {
		opt(h)
	}

	surf, err := surface.NewSurfaceByName(h.backend, h.width, h.height)
	if err != nil {
		return nil, fmt.Errorf("hub: %w", err)
	}

	st := &state{
		store:   heatmap.NewStore(),
		surf:    surf,
		clients: make(map[*client]struct{}),
	}
	if h.db != nil {
		samples, err := h.db.Samples(ctx)
		if err != nil {
			_ = surf.Close()
			return nil, fmt.Errorf("hub: seed: %w", err)
		}
		st.store = heatmap.NewStoreFrom(samples)

		switch scan, err := h.db.LatestScan(ctx); {
		case err == nil:
			st.status = scan
		case !errors.Is(err, storage.ErrNoScan):
			_ = surf.Close()
			return nil, fmt.Errorf("hub: seed: %w", err)
		}
		h.log.Info("seeded from database", "samples", st.store.Len())
	}

	st.renderer = heatmap.NewRenderer(st.store, surf, h.rendering...)
	st.renderer.OnFrame(func(frame *image.RGBA) { h.frameRendered(st, frame) })
	h.frameRendered(st, st.renderer.Frame())

	h.st = st
	return h, nil
}

// frameRendered caches the encoded frame. It runs inside Render.
func (h *Hub) frameRendered(st *state, frame *image.RGBA) {
	st.frame = frame
	st.gen++
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		h.log.Error("encode frame", "err", err)
		return
	}
	st.png = buf.Bytes()
	h.metrics.ObserveRender(st.renderer.LastDuration(), st.store.Len())
}

// Run processes commands until ctx is done, then disconnects every client
// and releases the renderer. Run must be called exactly once.
func (h *Hub) Run(ctx context.Context) error {
	st := h.st
	defer func() {
		close(h.done)
		for c := range st.clients {
			h.disconnect(st, c)
		}
		_ = st.renderer.Close()
		_ = st.surf.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-h.cmds:
			fn(st)
		}
	}
}

// do runs fn on the Run goroutine and waits for it.
func (h *Hub) do(ctx context.Context, fn func(*state)) error {
	finished := make(chan struct{})
	cmd := func(st *state) {
		defer close(finished)
		fn(st)
	}
	select {
	case h.cmds <- cmd:
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// SetStatus records a new link reading and broadcasts it as
// signal_update. The sample store is not touched.
func (h *Hub) SetStatus(ctx context.Context, s wire.Status) error {
	return h.do(ctx, func(st *state) {
		st.status = s
		if h.db != nil {
			if err := h.db.InsertScan(ctx, s); err != nil {
				h.log.Warn("persist scan", "err", err)
			}
		}
		if h.csv != nil {
			if err := h.csv.AppendScan(s); err != nil {
				h.log.Warn("log scan", "err", err)
			}
		}
		h.broadcast(st, wire.EventSignalUpdate, s)
	})
}

// AddPoint records a sample at p with the latest strength and the current
// UTC time, broadcasts all_points and returns the sample.
func (h *Hub) AddPoint(ctx context.Context, p wire.AddPoint) (heatmap.Sample, error) {
	var (
		sample heatmap.Sample
		err    error
	)
	if derr := h.do(ctx, func(st *state) {
		sample, err = h.addPoint(ctx, st, p)
	}); derr != nil {
		return heatmap.Sample{}, derr
	}
	return sample, err
}

func (h *Hub) addPoint(ctx context.Context, st *state, p wire.AddPoint) (heatmap.Sample, error) {
	sample := p.Sample(st.status.Strength, h.now().UTC())
	if err := sample.Validate(); err != nil {
		return heatmap.Sample{}, err
	}

	// The live view takes priority over the archive: persistence failures
	// are logged and the sample is still shown.
	if h.db != nil {
		if err := h.db.InsertSample(ctx, sample); err != nil {
			h.log.Warn("persist sample", "err", err)
		}
	}
	if h.csv != nil {
		if err := h.csv.AppendSample(st.status, sample); err != nil {
			h.log.Warn("log sample", "err", err)
		}
	}

	if err := st.store.Append(sample); err != nil {
		return heatmap.Sample{}, err
	}
	h.log.Debug("point added", "x", sample.Position.X, "y", sample.Position.Y,
		"signal", sample.Strength.String(), "samples", st.store.Len())
	h.broadcast(st, wire.EventAllPoints, allPoints(st.store))
	return sample, nil
}

// Reset deletes every sample, from the database too, and broadcasts the
// empty list.
func (h *Hub) Reset(ctx context.Context) error {
	var err error
	if derr := h.do(ctx, func(st *state) {
		if h.db != nil {
			if _, err = h.db.DeleteSamples(ctx); err != nil {
				return
			}
		}
		st.store.Clear()
		h.broadcast(st, wire.EventAllPoints, allPoints(st.store))
	}); derr != nil {
		return derr
	}
	return err
}

// Samples returns a copy of the samples in insertion order.
func (h *Hub) Samples(ctx context.Context) ([]heatmap.Sample, error) {
	var out []heatmap.Sample
	err := h.do(ctx, func(st *state) { out = st.store.Samples() })
	return out, err
}

// Status returns the latest link reading.
func (h *Hub) Status(ctx context.Context) (wire.Status, error) {
	var out wire.Status
	err := h.do(ctx, func(st *state) { out = st.status })
	return out, err
}

// Frame returns the latest frame encoded as PNG. The bytes are shared and
// must not be modified.
func (h *Hub) Frame(ctx context.Context) ([]byte, error) {
	var out []byte
	err := h.do(ctx, func(st *state) { out = st.png })
	return out, err
}

// Image returns the latest frame and its generation, which increases with
// every render. The frame must not be modified.
func (h *Hub) Image(ctx context.Context) (*image.RGBA, uint64, error) {
	var (
		out *image.RGBA
		gen uint64
	)
	err := h.do(ctx, func(st *state) { out, gen = st.frame, st.gen })
	return out, gen, err
}

// Clients returns the number of connected clients.
func (h *Hub) Clients(ctx context.Context) (int, error) {
	var n int
	err := h.do(ctx, func(st *state) { n = len(st.clients) })
	return n, err
}

func allPoints(s *heatmap.Store) []heatmap.Sample {
	samples := s.Samples()
	if samples == nil {
		samples = []heatmap.Sample{}
	}
	return samples
}
