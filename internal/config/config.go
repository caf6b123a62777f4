// Package config loads the heatmap server configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/heatmap"
	"github.com/gogpu/heatmap/surface"
)

// Scanner backends.
const (
	BackendAuto   = "auto"
	BackendNmcli  = "nmcli"
	BackendNetsh  = "netsh"
	BackendStatic = "static"
)

// Config is the server configuration.
type Config struct {
	Listen       string        `toml:"listen"`
	Width        int           `toml:"width"`
	Height       int           `toml:"height"`
	Surface      string        `toml:"surface"`
	Background   string        `toml:"background"`
	HeatOpacity  int           `toml:"heat_opacity"`
	Ramp         RampConfig    `toml:"ramp"`
	DBPath       string        `toml:"db_path"`
	LogCSV       string        `toml:"log_csv"`
	Scanner      ScannerConfig `toml:"scanner"`
	HistoryLimit int           `toml:"history_limit"`
}

// RampConfig holds the three ramp stops as hex colors.
type RampConfig struct {
	Weak   string `toml:"weak"`
	Mid    string `toml:"mid"`
	Strong string `toml:"strong"`
}

// ScannerConfig controls the signal scanner.
type ScannerConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
	Backend  string   `toml:"backend"`
}

// Duration is a time.Duration that decodes from strings like "2s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:      "127.0.0.1:5000",
		Width:       800,
		Height:      600,
		Surface:     surface.BackendImage,
		Background:  "#ffffff",
		HeatOpacity: heatmap.DefaultHeatOpacity,
		Ramp: RampConfig{
			Weak:   "#dc2828",
			Mid:    "#e6c832",
			Strong: "#30c858",
		},
		DBPath: "heatmap.db",
		LogCSV: "wifi_log.csv",
		Scanner: ScannerConfig{
			Enabled:  true,
			Interval: Duration{2 * time.Second},
			Backend:  BackendAuto,
		},
		HistoryLimit: 30,
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen must not be empty"))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("size %dx%d must be positive", c.Width, c.Height))
	}
	if c.HeatOpacity < 0 || c.HeatOpacity > 255 {
		errs = append(errs, fmt.Errorf("heat_opacity %d out of range [0, 255]", c.HeatOpacity))
	}
	if c.Background != "" {
		if _, err := heatmap.Hex(c.Background); err != nil {
			errs = append(errs, fmt.Errorf("background: %w", err))
		}
	}
	if _, err := c.Ramp.Ramp(); err != nil {
		errs = append(errs, err)
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("history_limit %d must be positive", c.HistoryLimit))
	}
	switch c.Scanner.Backend {
	case BackendAuto, BackendNmcli, BackendNetsh, BackendStatic:
	default:
		errs = append(errs, fmt.Errorf("scanner.backend %q unknown", c.Scanner.Backend))
	}
	if c.Scanner.Enabled && c.Scanner.Interval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("scanner.interval %s must be positive", c.Scanner.Interval))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Ramp parses the configured stops.
func (r RampConfig) Ramp() (heatmap.Ramp, error) {
	weak, err := heatmap.Hex(r.Weak)
	if err != nil {
		return heatmap.Ramp{}, fmt.Errorf("ramp.weak: %w", err)
	}
	mid, err := heatmap.Hex(r.Mid)
	if err != nil {
		return heatmap.Ramp{}, fmt.Errorf("ramp.mid: %w", err)
	}
	strong, err := heatmap.Hex(r.Strong)
	if err != nil {
		return heatmap.Ramp{}, fmt.Errorf("ramp.strong: %w", err)
	}
	return heatmap.Ramp{Weak: weak, Mid: mid, Strong: strong}, nil
}

// RendererOptions translates the rendering keys into renderer options.
// The config must be valid.
func (c Config) RendererOptions() []heatmap.Option {
	opts := []heatmap.Option{
		heatmap.WithHeatOpacity(uint8(c.HeatOpacity)), //nolint:gosec // validated to [0, 255]
	}
	if ramp, err := c.Ramp.Ramp(); err == nil {
		opts = append(opts, heatmap.WithRamp(ramp))
	}
	var bg color.Color
	if c.Background != "" {
		if v, err := heatmap.Hex(c.Background); err == nil {
			bg = v
		}
	}
	return append(opts, heatmap.WithBackground(bg))
}
