package cmd

import (
	"fmt"
	"os"

	"Melodia/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "melodia",
	Short: "Melodia is a personal music site: catalog, uploads, play counts and a terminal player.",
	Run: func(cmd *cobra.Command, args []string) {
		// server.Start handles its own port and logging.
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
