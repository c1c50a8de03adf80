package cli

import (
	"fmt"

	"github.com/hostscout/hostscout/internal/config"
	"github.com/spf13/cobra"
)

var initForce bool

// initCmd writes a starter config file.
var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a hostscout.yaml configuration",
	Long: `Write a starter configuration file with the default settings
commented for editing.

Examples:
  hostscout init
  hostscout init /etc/hostscout.yaml
  hostscout init --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "hostscout.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.Write(path, initForce); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
	rootCmd.AddCommand(initCmd)
}
