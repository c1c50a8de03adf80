// Package cli wires the hostscout commands.
package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/hostscout/hostscout/internal/errors"
	"github.com/spf13/cobra"
)

// Persistent flags
var configFlag string

var rootCmd = &cobra.Command{
	Use:   "hostscout",
	Short: "Fleet SSH monitoring and terminal access",
	Long: `hostscout polls a fleet of hosts over SSH for system metrics and
serves live updates and interactive terminals over websockets.

Examples:
  hostscout serve
  hostscout host add --name web-1 --address 10.0.0.5
  hostscout host list`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Config returns the value of the persistent --config flag.
func Config() string {
	return configFlag
}

// Execute runs the root command and exits nonzero on failure. Scout
// errors already carry a suggestion, so they print as-is.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var se *errors.Error
		if stderrors.As(err, &se) {
			fmt.Fprintln(os.Stderr, se.Error())
		} else {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")
}
