package cli

import (
	"context"
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/heatmap"
	"github.com/gogpu/heatmap/internal/config"
	"github.com/gogpu/heatmap/internal/samplelog"
	"github.com/gogpu/heatmap/internal/storage"
	"github.com/gogpu/heatmap/surface"
)

type renderOptions struct {
	configPath string
	in         string
	db         string
	out        string
	width      int
	height     int
}

func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a sample log or database to a PNG",
		Long: `Render reads the samples recorded in a CSV log (--in) or a heatmap
database (--db) and writes the heatmap to a PNG file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.render(cmd.Context(), cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "TOML config file for size and colors")
	f.StringVarP(&opts.in, "in", "i", "", "CSV sample log")
	f.StringVar(&opts.db, "db", "", "SQLite database")
	f.StringVarP(&opts.out, "out", "o", "heatmap.png", "output PNG")
	f.IntVar(&opts.width, "width", 0, "output width in pixels")
	f.IntVar(&opts.height, "height", 0, "output height in pixels")
	cmd.MarkFlagsMutuallyExclusive("in", "db")
	cmd.MarkFlagsOneRequired("in", "db")

	return cmd
}

func (c *CLI) render(ctx context.Context, cmd *cobra.Command, opts renderOptions) error {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("width") {
		cfg.Width = opts.width
	}
	if cmd.Flags().Changed("height") {
		cfg.Height = opts.height
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	samples, err := c.loadSamples(ctx, opts)
	if err != nil {
		return err
	}

	surf, err := surface.NewSurfaceByName(cfg.Surface, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer surf.Close()

	r := heatmap.NewRenderer(heatmap.NewStoreFrom(samples), surf, cfg.RendererOptions()...)
	defer r.Close()

	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, r.Frame()); err != nil {
		_ = f.Close()
		return fmt.Errorf("render: encode %s: %w", opts.out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	c.Logger.Info("rendered heatmap", "samples", len(samples), "out", opts.out,
		"duration", r.LastDuration())
	return nil
}

func (c *CLI) loadSamples(ctx context.Context, opts renderOptions) ([]heatmap.Sample, error) {
	if opts.db != "" {
		db, err := storage.Open(opts.db, c.slogger())
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.Samples(ctx)
	}

	f, err := os.Open(opts.in)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return samplelog.ReadSamples(f)
}
