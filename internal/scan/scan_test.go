package scan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gogpu/heatmap"
	"github.com/gogpu/heatmap/internal/config"
	"github.com/gogpu/heatmap/internal/metrics"
	"github.com/gogpu/heatmap/wire"
)

var strengthCmp = cmp.AllowUnexported(heatmap.Strength{})

// fakeRunner returns canned output per command name and records calls.
type fakeRunner struct {
	mu    sync.Mutex
	out   map[string]string
	err   map[string]error
	calls []string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	if err := f.err[name]; err != nil {
		return nil, err
	}
	return []byte(f.out[name]), nil
}

const nmcliOut = `:Guest:35:11\:22\:33\:44\:55\:66
*:Lab\: 2nd floor:78:AA\:BB\:CC\:DD\:EE\:FF
:Other:90:00\:00\:00\:00\:00\:01
`

const netshOut = `
There is 1 interface on the system:

    Name                   : Wi-Fi
    Description            : Intel(R) Wi-Fi 6 AX201 160MHz
    State                  : connected
    SSID                   : Office
    BSSID                  : 12:34:56:78:9a:bc
    Network type           : Infrastructure
    Radio type             : 802.11ax
    Signal                 : 64%
    Profile                : Office
`

func TestParseNmcli(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    wire.Status
		wantErr error
	}{
		{
			name: "active row",
			in:   nmcliOut,
			want: wire.Status{SSID: "Lab: 2nd floor", BSSID: "AA:BB:CC:DD:EE:FF", Strength: heatmap.StrengthOf(78)},
		},
		{
			name: "bad signal",
			in:   "*:Lab:--:AA\\:BB\n",
			want: wire.Status{SSID: "Lab", BSSID: "AA:BB"},
		},
		{name: "no active row", in: ":Guest:35:11\\:22\n", wantErr: ErrNoLink},
		{name: "empty", in: "", wantErr: ErrNoLink},
		{name: "short row", in: "*:Lab\n", wantErr: ErrNoLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNmcli([]byte(tt.in))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got, strengthCmp); diff != "" {
				t.Errorf("status mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitTerse(t *testing.T) {
	got := splitTerse(`a\:b:c\\:`)
	want := []string{"a:b", `c\`, ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("splitTerse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNetsh(t *testing.T) {
	got, err := ParseNetsh([]byte(netshOut))
	if err != nil {
		t.Fatalf("ParseNetsh: %v", err)
	}
	want := wire.Status{SSID: "Office", BSSID: "12:34:56:78:9a:bc", Strength: heatmap.StrengthOf(64)}
	if diff := cmp.Diff(want, got, strengthCmp); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}

	disconnected := "    Name : Wi-Fi\n    State : disconnected\n"
	if _, err := ParseNetsh([]byte(disconnected)); !errors.Is(err, ErrNoLink) {
		t.Errorf("disconnected err = %v, want ErrNoLink", err)
	}
}

func TestNewSource(t *testing.T) {
	r := &fakeRunner{}
	tests := []struct {
		backend, goos string
		want          Source
	}{
		{config.BackendNmcli, "linux", Nmcli{Runner: r}},
		{config.BackendNetsh, "linux", Netsh{Runner: r}},
		{config.BackendStatic, "linux", Static{}},
		{config.BackendAuto, "windows", Netsh{Runner: r}},
		{config.BackendAuto, "linux", Fallback{Nmcli{Runner: r}, Netsh{Runner: r}}},
	}
	for _, tt := range tests {
		t.Run(tt.backend+"/"+tt.goos, func(t *testing.T) {
			got, err := NewSource(tt.backend, tt.goos, r)
			if err != nil {
				t.Fatalf("NewSource: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, strengthCmp, cmp.Comparer(func(a, b *fakeRunner) bool { return a == b })); diff != "" {
				t.Errorf("source mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := NewSource("wpa", "linux", r); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestFallback(t *testing.T) {
	t.Run("nmcli wins", func(t *testing.T) {
		r := &fakeRunner{out: map[string]string{"nmcli": nmcliOut, "netsh": netshOut}}
		src, _ := NewSource(config.BackendAuto, "linux", r)
		st, err := src.Read(context.Background())
		if err != nil || st.SSID != "Lab: 2nd floor" {
			t.Errorf("Read = %+v, %v", st, err)
		}
		if len(r.calls) != 1 {
			t.Errorf("calls = %v, want nmcli only", r.calls)
		}
	})

	t.Run("netsh when nmcli fails", func(t *testing.T) {
		r := &fakeRunner{
			out: map[string]string{"netsh": netshOut},
			err: map[string]error{"nmcli": errors.New("executable file not found")},
		}
		src, _ := NewSource(config.BackendAuto, "linux", r)
		st, err := src.Read(context.Background())
		if err != nil || st.SSID != "Office" {
			t.Errorf("Read = %+v, %v", st, err)
		}
	})

	t.Run("both fail", func(t *testing.T) {
		boom := errors.New("boom")
		r := &fakeRunner{err: map[string]error{"nmcli": boom, "netsh": boom}}
		src, _ := NewSource(config.BackendAuto, "linux", r)
		if _, err := src.Read(context.Background()); !errors.Is(err, boom) {
			t.Errorf("err = %v, want boom", err)
		}
	})
}

func TestPoll(t *testing.T) {
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.FixedZone("CEST", 2*3600))
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		src    Source
		want   wire.Status
		result string
	}{
		{
			name:   "ok",
			src:    Static{Status: wire.Status{SSID: "lab", Strength: heatmap.StrengthOf(50)}},
			want:   wire.Status{SSID: "lab", Strength: heatmap.StrengthOf(50), Timestamp: now.UTC()},
			result: metrics.ScanOK,
		},
		{
			name:   "no link",
			src:    Netsh{Runner: &fakeRunner{out: map[string]string{"netsh": "State : disconnected"}}},
			want:   wire.Status{Timestamp: now.UTC()},
			result: metrics.ScanNoLink,
		},
		{
			name:   "failure",
			src:    Nmcli{Runner: &fakeRunner{err: map[string]error{"nmcli": errors.New("exit status 8")}}},
			want:   wire.Status{Timestamp: now.UTC()},
			result: metrics.ScanFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(m.Scans.WithLabelValues(tt.result))
			s := New(tt.src, time.Second, WithMetrics(m), WithClock(func() time.Time { return now }))
			got := s.Poll(context.Background())
			if diff := cmp.Diff(tt.want, got, strengthCmp); diff != "" {
				t.Errorf("status mismatch (-want +got):\n%s", diff)
			}
			if got.Timestamp.Location() != time.UTC {
				t.Errorf("timestamp location = %v, want UTC", got.Timestamp.Location())
			}
			if d := testutil.ToFloat64(m.Scans.WithLabelValues(tt.result)) - before; d != 1 {
				t.Errorf("scans{result=%q} grew by %v, want 1", tt.result, d)
			}
		})
	}
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(Static{Status: wire.Status{SSID: "lab"}}, time.Millisecond)
	var got []wire.Status
	err := s.Run(ctx, func(st wire.Status) {
		got = append(got, st)
		if len(got) == 3 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d statuses, want 3", len(got))
	}
	for _, st := range got {
		if st.SSID != "lab" || st.Timestamp.IsZero() {
			t.Errorf("status = %+v", st)
		}
	}

	if err := New(Static{}, 0).Run(context.Background(), func(wire.Status) {}); err == nil {
		t.Error("expected error for zero interval")
	}
}
