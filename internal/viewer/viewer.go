// Package viewer is a headless heatmap client. It mirrors the server's
// sample list over a websocket, renders it locally and writes every frame
// to a PNG file.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gogpu/heatmap"
	"github.com/gogpu/heatmap/surface"
	"github.com/gogpu/heatmap/wire"
)

// ErrNotConnected is returned by AddPoint while no connection is up.
var ErrNotConnected = errors.New("viewer: not connected")

const (
	minBackoff = time.Second
	maxBackoff = 60 * time.Second
)

// Viewer keeps a local copy of a server's samples.
type Viewer struct {
	url       string
	dialer    *websocket.Dialer
	log       *slog.Logger
	output    string
	ramp      heatmap.Ramp
	backend   string
	width     int
	height    int
	rendering []heatmap.Option
	backoff   time.Duration

	// mu guards the store, the renderer and the status.
	mu       sync.Mutex
	store    *heatmap.Store
	renderer *heatmap.Renderer
	surf     surface.Surface
	status   wire.Status

	// wmu serializes writes to conn.
	wmu  sync.Mutex
	conn *websocket.Conn
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(v *Viewer) {
		if l != nil {
			v.log = l
		}
	}
}

// WithOutput writes every rendered frame to path as PNG.
func WithOutput(path string) Option {
	return func(v *Viewer) { v.output = path }
}

// WithSurface selects the surface backend and frame size.
func WithSurface(backend string, width, height int) Option {
	return func(v *Viewer) {
		v.backend, v.width, v.height = backend, width, height
	}
}

// WithRamp sets the ramp used for the heat layer, the markers and the
// badge.
func WithRamp(r heatmap.Ramp) Option {
	return func(v *Viewer) {
		v.ramp = r
		v.rendering = append(v.rendering, heatmap.WithRamp(r))
	}
}

// WithRendererOptions passes options to the local renderer.
func WithRendererOptions(opts ...heatmap.Option) Option {
	return func(v *Viewer) { v.rendering = append(v.rendering, opts...) }
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(v *Viewer) {
		if d != nil {
			v.dialer = d
		}
	}
}

// WithReconnectDelay sets the first reconnect delay. It doubles after every
// failed attempt up to one minute.
func WithReconnectDelay(d time.Duration) Option {
	return func(v *Viewer) {
		if d > 0 {
			v.backoff = d
		}
	}
}

// New creates a viewer for the websocket at url and renders an empty
// frame. Nothing is dialed until Run.
func New(url string, opts ...Option) (*Viewer, error) {
	v := &Viewer{
		url:     url,
		dialer:  websocket.DefaultDialer,
		log:     slog.New(slog.DiscardHandler),
		ramp:    heatmap.DefaultRamp,
		backend: surface.BackendImage,
		width:   800,
		height:  600,
		backoff: minBackoff,
	}
	for _, opt := range opts {
		opt(v)
	}

	surf, err := surface.NewSurfaceByName(v.backend, v.width, v.height)
	if err != nil {
		return nil, fmt.Errorf("viewer: %w", err)
	}
	v.surf = surf
	v.store = heatmap.NewStore()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.renderer = heatmap.NewRenderer(v.store, surf, v.rendering...)
	v.renderer.OnFrame(v.writeFrame)
	v.writeFrame(v.renderer.Frame())
	return v, nil
}

// Run connects and applies server messages until ctx is done, reconnecting
// with exponential backoff when the connection drops.
func (v *Viewer) Run(ctx context.Context) error {
	backoff := v.backoff
	for {
		conn, _, err := v.dialer.DialContext(ctx, v.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			v.log.Warn("dial failed", "url", v.url, "err", err, "retry", backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = v.backoff

		v.log.Info("connected", "url", v.url)
		err = v.serve(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		v.log.Warn("connection lost", "err", err)
	}
}

// serve reads from conn until it fails or ctx is done.
func (v *Viewer) serve(ctx context.Context, conn *websocket.Conn) error {
	v.wmu.Lock()
	v.conn = conn
	v.wmu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		v.wmu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		v.wmu.Unlock()
		_ = conn.Close()
	})
	defer func() {
		stop()
		v.wmu.Lock()
		v.conn = nil
		v.wmu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		v.handle(msg)
	}
}

// handle applies one server message. Malformed messages are dropped.
func (v *Viewer) handle(msg []byte) bool {
	env, err := wire.Decode(msg)
	if err != nil {
		v.log.Debug("dropping message", "err", err)
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	switch env.Event {
	case wire.EventAllPoints:
		samples, ok := wire.DecodeSnapshot(env.Data)
		if !ok {
			v.log.Debug("dropping malformed all_points")
			return false
		}
		v.store.Replace(samples)
	case wire.EventPointAdded:
		s, ok := wire.DecodeSample(env.Data)
		if !ok {
			v.log.Debug("dropping malformed point_added")
			return false
		}
		if err := v.store.Append(s); err != nil {
			v.log.Debug("dropping point_added", "err", err)
			return false
		}
	case wire.EventSignalUpdate:
		st, ok := wire.DecodeStatus(env.Data)
		if !ok {
			v.log.Debug("dropping malformed signal_update")
			return false
		}
		v.status = st
		v.log.Info("signal", "ssid", st.SSID, "signal", st.Strength.String())
	default:
		v.log.Debug("ignoring event", "event", env.Event)
		return false
	}
	return true
}

// AddPoint asks the server to record a sample at (x, y). The local store
// changes only when the server answers.
func (v *Viewer) AddPoint(x, y float64, label string) error {
	msg, err := wire.Encode(wire.EventAddPoint, wire.AddPoint{X: x, Y: y, Label: label})
	if err != nil {
		return err
	}

	v.wmu.Lock()
	defer v.wmu.Unlock()
	if v.conn == nil {
		return ErrNotConnected
	}
	if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("viewer: add_point: %w", err)
	}
	return nil
}

// ClearLocal empties the local store only. The next all_points from the
// server restores it.
func (v *Viewer) ClearLocal() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.store.Clear()
}

// Samples returns a copy of the local samples.
func (v *Viewer) Samples() []heatmap.Sample {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.store.Samples()
}

// Status returns the latest signal_update.
func (v *Viewer) Status() wire.Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Frame returns a copy of the current frame.
func (v *Viewer) Frame() *image.RGBA {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renderer.Frame()
}

// Frames returns the number of frames rendered locally.
func (v *Viewer) Frames() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renderer.Frames()
}

// Badge renders the status badge for the latest signal_update.
func (v *Viewer) Badge() (*image.RGBA, error) {
	return heatmap.RenderBadge(v.Status().Strength, v.ramp)
}

// Close releases the renderer and its surface.
func (v *Viewer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	_ = v.renderer.Close()
	return v.surf.Close()
}

// writeFrame replaces the output file. It runs inside Render with mu held.
func (v *Viewer) writeFrame(frame *image.RGBA) {
	if v.output == "" || frame == nil {
		return
	}
	if err := writePNG(v.output, frame); err != nil {
		v.log.Warn("write frame", "path", v.output, "err", err)
	}
}

// writePNG writes img next to path and renames it into place so readers
// never see a partial file.
func writePNG(path string, img image.Image) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".heatmap-*.png")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
