package cmd

import (
	"Melodia/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API",
	Long:  `Start the Melodia HTTP server: public song catalog, play counting, admin uploads, hero banner, reviews and Spotify now-playing.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
