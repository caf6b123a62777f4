package samplelog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/heatmap"
	"github.com/gogpu/heatmap/wire"
)

var strengthCmp = cmp.AllowUnexported(heatmap.Strength{})

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "wifi_log.csv"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return l
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return string(b)
}

func TestOpenWritesHeaderOnce(t *testing.T) {
	l := openTestLog(t)
	want := "timestamp,ssid,bssid,signal_pct,x,y,label\n"
	if got := readFile(t, l.Path()); got != want {
		t.Fatalf("new log = %q, want %q", got, want)
	}

	// Reopening an existing log must not repeat the header.
	if _, err := Open(l.Path()); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := readFile(t, l.Path()); got != want {
		t.Errorf("reopened log = %q, want %q", got, want)
	}
}

func TestAppendRows(t *testing.T) {
	l := openTestLog(t)
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	st := wire.Status{SSID: "lab, 2nd floor", BSSID: "aa:bb:cc:dd:ee:ff", Strength: heatmap.StrengthOf(72), Timestamp: ts}

	if err := l.AppendScan(st); err != nil {
		t.Fatalf("AppendScan: %v", err)
	}
	if err := l.AppendScan(wire.Status{Timestamp: ts}); err != nil {
		t.Fatalf("AppendScan unknown: %v", err)
	}
	s := heatmap.Sample{Position: heatmap.Pt(0.25, 0.5), Strength: heatmap.StrengthOf(72), Label: "desk", Timestamp: ts}
	if err := l.AppendSample(st, s); err != nil {
		t.Fatalf("AppendSample: %v", err)
	}

	want := strings.Join([]string{
		"timestamp,ssid,bssid,signal_pct,x,y,label",
		`2026-03-04T05:06:07Z,"lab, 2nd floor",aa:bb:cc:dd:ee:ff,72,,,`,
		"2026-03-04T05:06:07Z,,,,,,",
		`2026-03-04T05:06:07Z,"lab, 2nd floor",aa:bb:cc:dd:ee:ff,72,0.25,0.5,desk`,
	}, "\n") + "\n"
	if got := readFile(t, l.Path()); got != want {
		t.Errorf("log mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestAppendRecreatesRemovedFile(t *testing.T) {
	l := openTestLog(t)
	if err := os.Remove(l.Path()); err != nil {
		t.Fatal(err)
	}
	if err := l.AppendScan(wire.Status{}); err != nil {
		t.Fatalf("AppendScan: %v", err)
	}
	if got := readFile(t, l.Path()); !strings.HasPrefix(got, "timestamp,ssid") {
		t.Errorf("recreated log has no header: %q", got)
	}
}

func TestWriteTo(t *testing.T) {
	l := openTestLog(t)
	if err := l.AppendScan(wire.Status{SSID: "x"}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	n, err := l.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(buf.Len()) || buf.String() != readFile(t, l.Path()) {
		t.Errorf("WriteTo copied %d bytes %q", n, buf.String())
	}
}

func TestConcurrentAppends(t *testing.T) {
	l := openTestLog(t)
	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := heatmap.Sample{Position: heatmap.Pt(float64(i)/n, 0.5)}
			if err := l.AppendSample(wire.Status{}, s); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	f, err := os.Open(l.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := ReadSamples(f)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if len(got) != n {
		t.Errorf("read %d samples, want %d", len(got), n)
	}
}

func TestReadSamples(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	tests := []struct {
		name string
		in   string
		want []heatmap.Sample
	}{
		{"empty", "", nil},
		{"header only", "timestamp,ssid,bssid,signal_pct,x,y,label\n", nil},
		{
			name: "scan rows skipped",
			in: "timestamp,ssid,bssid,signal_pct,x,y,label\n" +
				"2026-03-04T05:06:07Z,lab,aa,40,,,\n" +
				"2026-03-04T05:06:07Z,lab,aa,40,0.1,0.2,desk\n" +
				",,,,0.3,0.4,\n",
			want: []heatmap.Sample{
				{Position: heatmap.Pt(0.1, 0.2), Strength: heatmap.StrengthOf(40), Label: "desk", Timestamp: ts},
				{Position: heatmap.Pt(0.3, 0.4)},
			},
		},
		{
			name: "reordered columns",
			in:   "x,y,signal_pct\n0.5,0.5,90\n",
			want: []heatmap.Sample{{Position: heatmap.Pt(0.5, 0.5), Strength: heatmap.StrengthOf(90)}},
		},
		{
			name: "bad coordinates skipped",
			in:   "x,y\nabc,0.1\nNaN,0.2\n0.1,Inf\n0.7,0.8\n",
			want: []heatmap.Sample{{Position: heatmap.Pt(0.7, 0.8)}},
		},
		{
			name: "short rows",
			in:   "timestamp,ssid,bssid,signal_pct,x,y,label\n,,,55,0.2,0.2\n",
			want: []heatmap.Sample{{Position: heatmap.Pt(0.2, 0.2), Strength: heatmap.StrengthOf(55)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadSamples(strings.NewReader(tt.in))
			if err != nil {
				t.Fatalf("ReadSamples: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, strengthCmp); diff != "" {
				t.Errorf("samples mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadSamplesMissingColumns(t *testing.T) {
	if _, err := ReadSamples(strings.NewReader("timestamp,ssid\n")); err == nil {
		t.Error("expected error for header without x/y")
	}
}
