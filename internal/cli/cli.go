// Package cli implements the heatmapd command-line interface.
//
// # Commands
//
//   - serve: scan the Wi-Fi link and serve the live heatmap over HTTP
//   - render: render a CSV sample log to a PNG offline
//   - watch: follow a running server and write its heatmap to a PNG
//   - version: print build information
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The same
// logger backs the heatmap library through heatmap.SetLogger.
package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gogpu/heatmap"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	in  io.Reader
	out io.Writer
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		in:     os.Stdin,
		out:    os.Stdout,
	}
}

// newLogger creates a logger with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// slogger returns the CLI logger as a *slog.Logger.
func (c *CLI) slogger() *slog.Logger {
	return slog.New(c.Logger)
}

// RootCommand creates the root cobra command with all subcommands
// registered. The --verbose flag is wired here; commands built from it
// install the CLI logger for the heatmap library before running.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "heatmapd",
		Short:         "heatmapd maps Wi-Fi coverage as a live heatmap",
		Long:          `heatmapd records Wi-Fi signal strength at positions you click on a floor plan and renders the samples as a coverage heatmap.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if verbose {
				c.SetLogLevel(LogDebug)
			}
			heatmap.SetLogger(c.slogger())
			return nil
		},
	}
	root.SetVersionTemplate(versionString() + "\n")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.versionCommand())

	return root
}
