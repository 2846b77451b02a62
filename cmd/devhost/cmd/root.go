// Package cmd provides the command-line interface for devhost.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "devhost",
	Short: "Devhost hosts device drivers and manages their lifecycle.",
	Long: `Devhost hosts device drivers and manages their lifecycle. ` +
		`The run subcommand starts a host with a sample device tree so the ` +
		`lifecycle engine, the monitor, and the recorder can be exercised ` +
		`without real drivers.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
