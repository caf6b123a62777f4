package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version information displayed by --version and the
// version command. It is intended to be called from main with values
// injected by -ldflags.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
}

func versionString() string {
	return fmt.Sprintf("heatmapd %s\ncommit: %s\nbuilt: %s", version, commit, date)
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), versionString())
			return err
		},
	}
}
