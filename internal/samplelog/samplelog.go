// Package samplelog keeps the append-only CSV log of scans and samples
// that users download as wifi_log.csv.
package samplelog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gogpu/heatmap"
	"github.com/gogpu/heatmap/wire"
)

// Header is the first row of every log.
var Header = []string{"timestamp", "ssid", "bssid", "signal_pct", "x", "y", "label"}

// Log appends rows to a CSV file. It is safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	path string
}

// Open returns a log writing to path, creating the file with Header if it
// does not exist.
func Open(path string) (*Log, error) {
	l := &Log{path: path}
	if err := l.ensure(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the file path.
func (l *Log) Path() string { return l.path }

func (l *Log) ensure() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("samplelog: create %s: %w", l.path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		_ = f.Close()
		return fmt.Errorf("samplelog: header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("samplelog: header: %w", err)
	}
	return f.Close()
}

// AppendScan logs a scan row with empty position and label.
func (l *Log) AppendScan(st wire.Status) error {
	return l.append([]string{
		formatTime(st.Timestamp), st.SSID, st.BSSID, formatStrength(st.Strength), "", "", "",
	})
}

// AppendSample logs an accepted sample together with the link it was
// measured on.
func (l *Log) AppendSample(st wire.Status, s heatmap.Sample) error {
	return l.append([]string{
		formatTime(s.Timestamp), st.SSID, st.BSSID, formatStrength(s.Strength),
		formatFloat(s.Position.X), formatFloat(s.Position.Y), s.Label,
	})
}

func (l *Log) append(row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Recreate the header if the file was removed underneath us.
	if err := l.ensure(); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("samplelog: open %s: %w", l.path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		_ = f.Close()
		return fmt.Errorf("samplelog: write: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("samplelog: write: %w", err)
	}
	return f.Close()
}

// WriteTo copies the whole log to w.
func (l *Log) WriteTo(w io.Writer) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensure(); err != nil {
		return 0, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return 0, fmt.Errorf("samplelog: open %s: %w", l.path, err)
	}
	defer f.Close()
	return io.Copy(w, f)
}

// ReadSamples parses a log and returns the rows that carry a position, in
// file order. Scan rows are skipped. Rows whose x or y does not parse as a
// finite number are skipped too.
func ReadSamples(r io.Reader) ([]heatmap.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("samplelog: header: %w", err)
	}
	col := make(map[string]int, len(head))
	for i, name := range head {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"x", "y"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("samplelog: header has no %q column", name)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []heatmap.Sample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("samplelog: %w", err)
		}

		x, okX := parseFloat(field(rec, "x"))
		y, okY := parseFloat(field(rec, "y"))
		if !okX || !okY {
			continue
		}
		s := heatmap.Sample{Position: heatmap.Pt(x, y), Label: field(rec, "label")}
		if v, ok := parseFloat(field(rec, "signal_pct")); ok {
			s.Strength = heatmap.StrengthOf(v)
		}
		if ts, err := time.Parse(time.RFC3339Nano, field(rec, "timestamp")); err == nil {
			s.Timestamp = ts
		}
		out = append(out, s)
	}
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatStrength(s heatmap.Strength) string {
	v, ok := s.Value()
	if !ok {
		return ""
	}
	return formatFloat(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
