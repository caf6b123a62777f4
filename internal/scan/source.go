// Package scan polls the operating system for the current Wi-Fi link.
package scan

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/gogpu/heatmap"
	"github.com/gogpu/heatmap/internal/config"
	"github.com/gogpu/heatmap/wire"
)

// ErrNoLink is returned by a Source that ran fine but found no active
// connection.
var ErrNoLink = errors.New("scan: no active link")

// Runner executes an external command and returns its standard output.
// Tests substitute a fake so no real tool is invoked.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Output runs name with args and returns stdout.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Source reads the current link. The returned Status has no timestamp.
type Source interface {
	Read(ctx context.Context) (wire.Status, error)
}

// Nmcli reads the link from NetworkManager.
type Nmcli struct {
	Runner Runner
}

// Read runs nmcli in terse mode and picks the row marked in use.
func (n Nmcli) Read(ctx context.Context) (wire.Status, error) {
	out, err := n.Runner.Output(ctx, "nmcli", "-t", "-f", "IN-USE,SSID,SIGNAL,BSSID", "dev", "wifi")
	if err != nil {
		return wire.Status{}, fmt.Errorf("scan: nmcli: %w", err)
	}
	return ParseNmcli(out)
}

// ParseNmcli parses `nmcli -t -f IN-USE,SSID,SIGNAL,BSSID dev wifi`
// output. Terse mode escapes ':' inside values as "\:".
func ParseNmcli(out []byte) (wire.Status, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := splitTerse(sc.Text())
		if len(fields) < 4 || fields[0] != "*" {
			continue
		}
		return wire.Status{
			SSID:     fields[1],
			BSSID:    fields[3],
			Strength: parseSignal(fields[2]),
		}, nil
	}
	if err := sc.Err(); err != nil {
		return wire.Status{}, fmt.Errorf("scan: nmcli: %w", err)
	}
	return wire.Status{}, ErrNoLink
}

// splitTerse splits a terse nmcli line on unescaped colons.
func splitTerse(line string) []string {
	var (
		fields []string
		cur    strings.Builder
	)
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case c == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}

// Netsh reads the link from `netsh wlan show interfaces`.
type Netsh struct {
	Runner Runner
}

// Read runs netsh and parses its report.
func (n Netsh) Read(ctx context.Context) (wire.Status, error) {
	out, err := n.Runner.Output(ctx, "netsh", "wlan", "show", "interfaces")
	if err != nil {
		return wire.Status{}, fmt.Errorf("scan: netsh: %w", err)
	}
	return ParseNetsh(out)
}

// ParseNetsh parses the "Key : value" report printed by netsh. Later
// interfaces override earlier ones.
func ParseNetsh(out []byte) (wire.Status, error) {
	var (
		st    wire.Status
		found bool
	)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch {
		case strings.HasPrefix(key, "SSID"):
			st.SSID, found = value, true
		case strings.HasPrefix(key, "BSSID"):
			st.BSSID, found = value, true
		case strings.HasPrefix(key, "Signal"):
			st.Strength, found = parseSignal(strings.TrimSuffix(value, "%")), true
		}
	}
	if err := sc.Err(); err != nil {
		return wire.Status{}, fmt.Errorf("scan: netsh: %w", err)
	}
	if !found {
		return wire.Status{}, ErrNoLink
	}
	return st, nil
}

// parseSignal parses an integer percentage; anything else is unknown.
func parseSignal(s string) heatmap.Strength {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return heatmap.Unknown
	}
	return heatmap.StrengthOf(float64(v))
}

// Static always reports the same link.
type Static struct {
	Status wire.Status
}

// Read returns s.Status.
func (s Static) Read(context.Context) (wire.Status, error) {
	return s.Status, nil
}

// Fallback tries each source in order and returns the first reading with a
// known strength. If none has one, the last result is returned.
type Fallback []Source

// Read implements Source.
func (f Fallback) Read(ctx context.Context) (wire.Status, error) {
	var (
		st  wire.Status
		err error
	)
	for _, src := range f {
		st, err = src.Read(ctx)
		if err == nil && st.Strength.Known() {
			return st, nil
		}
	}
	if err == nil && len(f) == 0 {
		err = ErrNoLink
	}
	return st, err
}

// NewSource builds the source for a config backend name. goos selects the
// platform default for config.BackendAuto; pass runtime.GOOS outside tests.
func NewSource(backend, goos string, r Runner) (Source, error) {
	if r == nil {
		r = ExecRunner{}
	}
	switch backend {
	case config.BackendNmcli:
		return Nmcli{Runner: r}, nil
	case config.BackendNetsh:
		return Netsh{Runner: r}, nil
	case config.BackendStatic:
		return Static{}, nil
	case config.BackendAuto, "":
		if goos == "windows" {
			return Netsh{Runner: r}, nil
		}
		return Fallback{Nmcli{Runner: r}, Netsh{Runner: r}}, nil
	default:
		return nil, fmt.Errorf("scan: unknown backend %q", backend)
	}
}

// DefaultSource returns the auto-selected source for this platform.
func DefaultSource() Source {
	src, _ := NewSource(config.BackendAuto, runtime.GOOS, nil)
	return src
}
