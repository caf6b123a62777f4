package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/heatmap/internal/viewer"
	"github.com/gogpu/heatmap/surface"
	"github.com/gogpu/heatmap/wire"
)

type watchOptions struct {
	url    string
	out    string
	width  int
	height int
}

func (c *CLI) watchCommand() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a running server and write its heatmap to a PNG",
		Long: `Watch connects to a heatmapd server, mirrors its samples and rewrites
the output PNG after every change.

Commands are read from standard input, one per line:

  add X Y [LABEL]   record a sample at normalized position (X, Y)
  clear             clear the local copy until the next update
  status            print the latest signal reading`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.watch(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.url, "url", "u", "ws://127.0.0.1:5000/ws", "server websocket URL")
	f.StringVarP(&opts.out, "out", "o", "heatmap.png", "output PNG")
	f.IntVar(&opts.width, "width", 800, "local frame width in pixels")
	f.IntVar(&opts.height, "height", 600, "local frame height in pixels")

	return cmd
}

func (c *CLI) watch(ctx context.Context, opts watchOptions) error {
	v, err := viewer.New(opts.url,
		viewer.WithLogger(c.slogger().With("component", "viewer")),
		viewer.WithOutput(opts.out),
		viewer.WithSurface(surface.BackendImage, opts.width, opts.height),
	)
	if err != nil {
		return err
	}
	defer v.Close()

	go func() {
		if err := runCommands(c.in, c.out, v); err != nil {
			c.Logger.Warn("reading commands", "err", err)
		}
	}()

	if err := v.Run(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// commander is the part of a viewer driven by stdin commands.
type commander interface {
	AddPoint(x, y float64, label string) error
	ClearLocal()
	Status() wire.Status
}

// runCommands executes one command per line of r until EOF. Bad lines are
// reported on w and skipped.
func runCommands(r io.Reader, w io.Writer, v commander) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if err := runCommand(fields, w, v); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	}
	return sc.Err()
}

func runCommand(fields []string, w io.Writer, v commander) error {
	switch fields[0] {
	case "add":
		if len(fields) < 3 {
			return fmt.Errorf("usage: add X Y [LABEL]")
		}
		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("bad x %q", fields[1])
		}
		y, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("bad y %q", fields[2])
		}
		return v.AddPoint(x, y, strings.Join(fields[3:], " "))
	case "clear":
		v.ClearLocal()
		return nil
	case "status":
		st := v.Status()
		ssid := st.SSID
		if ssid == "" {
			ssid = "-"
		}
		_, err := fmt.Fprintf(w, "%s %s\n", ssid, st.Strength)
		return err
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}
