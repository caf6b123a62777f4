// Package server exposes the live heatmap over HTTP.
package server

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gogpu/heatmap"
	"github.com/gogpu/heatmap/internal/cache"
	"github.com/gogpu/heatmap/internal/hub"
	"github.com/gogpu/heatmap/internal/metrics"
	"github.com/gogpu/heatmap/internal/samplelog"
	"github.com/gogpu/heatmap/internal/stats"
	"github.com/gogpu/heatmap/wire"
)

// maxScaledSize bounds the w and h query parameters of /heatmap.png.
const maxScaledSize = 4096

// scaledCacheSize is the number of scaled renditions kept per server.
const scaledCacheSize = 16

// scaledKey identifies a scaled rendition of one frame generation.
type scaledKey struct {
	gen           uint64
	width, height int
}

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

//go:embed index.html
var indexHTML []byte

// Server serves the HTTP API of a hub.
type Server struct {
	hub     *hub.Hub
	csv     *samplelog.Log
	metrics *metrics.Collector
	ramp    heatmap.Ramp
	history int
	log     *slog.Logger
	scaled  *cache.Cache[scaledKey, []byte]
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSampleLog serves l at /wifi_log.csv.
func WithSampleLog(l *samplelog.Log) Option {
	return func(s *Server) { s.csv = l }
}

// WithMetrics serves m at /metrics.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRamp sets the badge colors.
func WithRamp(r heatmap.Ramp) Option {
	return func(s *Server) { s.ramp = r }
}

// WithHistoryLimit sets the default length of /api/samples.
func WithHistoryLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.history = n
		}
	}
}

// New returns a server for h.
func New(h *hub.Hub, opts ...Option) *Server {
	s := &Server{
		hub:     h,
		ramp:    heatmap.DefaultRamp,
		history: 30,
		log:     slog.New(slog.DiscardHandler),
		scaled:  cache.New[scaledKey, []byte](scaledCacheSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/ws", s.hub)
	r.Get("/heatmap.png", s.handleHeatmap)
	r.Get("/badge.png", s.handleBadge)
	r.Get("/wifi_log.csv", s.handleLog)
	r.Route("/api", func(r chi.Router) {
		r.Get("/samples", s.handleSamples)
		r.Post("/samples", s.handleAddSample)
		r.Delete("/samples", s.handleReset)
		r.Get("/status", s.handleStatus)
		r.Get("/stats", s.handleStats)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	width, okW := sizeParam(r, "w")
	height, okH := sizeParam(r, "h")
	if !okW || !okH {
		http.Error(w, fmt.Sprintf("w and h must be integers in [1, %d]", maxScaledSize), http.StatusBadRequest)
		return
	}

	if width == 0 && height == 0 {
		frame, err := s.hub.Frame(r.Context())
		if err != nil {
			s.unavailable(w, err)
			return
		}
		writePNG(w, frame)
		return
	}

	img, gen, err := s.hub.Image(r.Context())
	if err != nil {
		s.unavailable(w, err)
		return
	}
	key := scaledKey{gen: gen, width: width, height: height}
	if b, ok := s.scaled.Get(key); ok {
		writePNG(w, b)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, heatmap.Scale(img, width, height)); err != nil {
		s.internal(w, err)
		return
	}
	s.scaled.Set(key, buf.Bytes())
	writePNG(w, buf.Bytes())
}

// sizeParam returns 0 when the parameter is absent.
func sizeParam(r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxScaledSize {
		return 0, false
	}
	return n, true
}

func (s *Server) handleBadge(w http.ResponseWriter, r *http.Request) {
	st, err := s.hub.Status(r.Context())
	if err != nil {
		s.unavailable(w, err)
		return
	}
	img, err := heatmap.RenderBadge(st.Strength, s.ramp)
	if err != nil {
		s.internal(w, err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		s.internal(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writePNG(w, buf.Bytes())
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if s.csv == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="wifi_log.csv"`)
	if _, err := s.csv.WriteTo(w); err != nil {
		s.log.Warn("serve log", "err", err)
	}
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	last := s.history
	if v := r.URL.Query().Get("last"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "last must be a non-negative integer", http.StatusBadRequest)
			return
		}
		last = n
	}

	samples, err := s.hub.Samples(r.Context())
	if err != nil {
		s.unavailable(w, err)
		return
	}
	slices.Reverse(samples)
	if len(samples) > last {
		samples = samples[:last]
	}
	if samples == nil {
		samples = []heatmap.Sample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) handleAddSample(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&raw); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	p, ok := wire.DecodeAddPoint(raw)
	if !ok {
		s.metrics.Drop(wire.EventAddPoint)
		http.Error(w, "invalid point", http.StatusBadRequest)
		return
	}
	sample, err := s.hub.AddPoint(r.Context(), p)
	switch {
	case errors.Is(err, heatmap.ErrNonFinitePosition):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		s.unavailable(w, err)
	default:
		writeJSON(w, http.StatusCreated, sample)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Reset(r.Context()); err != nil {
		s.internal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.hub.Status(r.Context())
	if err != nil {
		s.unavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	samples, err := s.hub.Samples(r.Context())
	if err != nil {
		s.unavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Summarize(samples))
}

func (s *Server) unavailable(w http.ResponseWriter, err error) {
	s.log.Warn("hub unavailable", "err", err)
	http.Error(w, "heatmap unavailable", http.StatusServiceUnavailable)
}

func (s *Server) internal(w http.ResponseWriter, err error) {
	s.log.Error("request failed", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writePNG(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
