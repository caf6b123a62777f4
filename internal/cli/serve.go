package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/heatmap/internal/config"
	"github.com/gogpu/heatmap/internal/hub"
	"github.com/gogpu/heatmap/internal/metrics"
	"github.com/gogpu/heatmap/internal/samplelog"
	"github.com/gogpu/heatmap/internal/scan"
	"github.com/gogpu/heatmap/internal/server"
	"github.com/gogpu/heatmap/internal/storage"
	"github.com/gogpu/heatmap/wire"
)

// serveOptions holds flag values; a flag overrides the config file only
// when it was set.
type serveOptions struct {
	configPath string
	listen     string
	width      int
	height     int
	dbPath     string
	logCSV     string
	backend    string
	noScan     bool
}

func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Scan the Wi-Fi link and serve the live heatmap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			return c.serve(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	f.StringVarP(&opts.listen, "listen", "l", "", "listen address (default 127.0.0.1:5000)")
	f.IntVar(&opts.width, "width", 0, "heatmap width in pixels")
	f.IntVar(&opts.height, "height", 0, "heatmap height in pixels")
	f.StringVar(&opts.dbPath, "db", "", "SQLite database path")
	f.StringVar(&opts.logCSV, "log-csv", "", "CSV log path")
	f.StringVar(&opts.backend, "scanner", "", "scanner backend: auto, nmcli, netsh or static")
	f.BoolVar(&opts.noScan, "no-scan", false, "disable the signal scanner")

	return cmd
}

// config loads the config file, if any, and applies the flags that were
// set on cmd.
func (o serveOptions) config(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return config.Config{}, err
		}
	}

	f := cmd.Flags()
	if f.Changed("listen") {
		cfg.Listen = o.listen
	}
	if f.Changed("width") {
		cfg.Width = o.width
	}
	if f.Changed("height") {
		cfg.Height = o.height
	}
	if f.Changed("db") {
		cfg.DBPath = o.dbPath
	}
	if f.Changed("log-csv") {
		cfg.LogCSV = o.logCSV
	}
	if f.Changed("scanner") {
		cfg.Scanner.Backend = o.backend
	}
	if o.noScan {
		cfg.Scanner.Enabled = false
	}
	return cfg, cfg.Validate()
}

func (c *CLI) serve(ctx context.Context, cfg config.Config) error {
	log := c.slogger()

	m, err := metrics.New(nil)
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.DBPath, log.With("component", "storage"))
	if err != nil {
		return err
	}
	defer db.Close()

	csvLog, err := samplelog.Open(cfg.LogCSV)
	if err != nil {
		return err
	}

	ramp, err := cfg.Ramp.Ramp()
	if err != nil {
		return err
	}

	h, err := hub.New(ctx,
		hub.WithLogger(log.With("component", "hub")),
		hub.WithMetrics(m),
		hub.WithStorage(db),
		hub.WithSampleLog(csvLog),
		hub.WithSurface(cfg.Surface, cfg.Width, cfg.Height),
		hub.WithRendererOptions(cfg.RendererOptions()...),
	)
	if err != nil {
		return err
	}

	srv := server.New(h,
		server.WithLogger(log.With("component", "http")),
		server.WithSampleLog(csvLog),
		server.WithMetrics(m),
		server.WithRamp(ramp),
		server.WithHistoryLimit(cfg.HistoryLimit),
	)

	var sc *scan.Scanner
	if cfg.Scanner.Enabled {
		src, err := scan.NewSource(cfg.Scanner.Backend, runtime.GOOS, nil)
		if err != nil {
			return err
		}
		sc = scan.New(src, cfg.Scanner.Interval.Duration,
			scan.WithLogger(log.With("component", "scan")),
			scan.WithMetrics(m),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.Run(gctx) })
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.Listen) })
	if sc != nil {
		g.Go(func() error {
			return sc.Run(gctx, func(st wire.Status) {
				if err := h.SetStatus(gctx, st); err != nil && gctx.Err() == nil {
					log.Warn("publish scan", "err", err)
				}
			})
		})
	}

	c.Logger.Info("serving heatmap", "url", fmt.Sprintf("http://%s", cfg.Listen),
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height), "scanner", cfg.Scanner.Enabled)
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
