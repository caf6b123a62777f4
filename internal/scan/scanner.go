package scan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gogpu/heatmap/internal/metrics"
	"github.com/gogpu/heatmap/wire"
)

// Scanner polls a Source at a fixed interval.
type Scanner struct {
	src      Source
	interval time.Duration
	log      *slog.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics counts scans by result.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a scanner reading src every interval.
func New(src Source, interval time.Duration, opts ...Option) *Scanner {
	s := &Scanner{
		src:      src,
		interval: interval,
		log:      slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Poll reads the link once. Failures never surface as errors: the status
// is returned with every field unknown and only the timestamp set.
func (s *Scanner) Poll(ctx context.Context) wire.Status {
	st, err := s.src.Read(ctx)
	switch {
	case errors.Is(err, ErrNoLink):
		s.metrics.ObserveScan(metrics.ScanNoLink)
		st = wire.Status{}
	case err != nil:
		s.log.Debug("scan failed", "err", err)
		s.metrics.ObserveScan(metrics.ScanFailure)
		st = wire.Status{}
	case !st.Strength.Known():
		s.metrics.ObserveScan(metrics.ScanNoLink)
	default:
		s.metrics.ObserveScan(metrics.ScanOK)
	}
	st.Timestamp = s.now().UTC()
	return st
}

// Run polls immediately and then every interval, passing each status to
// fn, until ctx is done. fn runs on the scanner goroutine.
func (s *Scanner) Run(ctx context.Context, fn func(wire.Status)) error {
	if s.interval <= 0 {
		return errors.New("scan: interval must be positive")
	}
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		st := s.Poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.log.Debug("scan", "ssid", st.SSID, "signal", st.Strength.String())
		fn(st)

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
