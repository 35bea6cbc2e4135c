package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sweepserver",
	Short: "Multiplayer minesweeper server",
	Long: `sweepserver hosts shared minesweeper boards over websockets.

Run "sweepserver serve" to start the server or "sweepserver gen" to try the
board generator from the command line.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
