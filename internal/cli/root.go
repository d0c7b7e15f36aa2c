// Package cli implements the vo2trend CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasjlepore/vo2-trend/internal/config"
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "vo2trend",
	Short: "Chart VO2 Max estimates from downloaded FIT activities",
	Long: "Reads downloaded activity files (bare .fit, .zip or .fit.gz), extracts the VO2 Max " +
		"estimate from each, and writes a time-ordered series, a per-activity report and a chart.",
}

func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
