// Package cmd contains the explorer admin app.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath       string
	onlineWindow string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "zarea/peers.db", "Path to the peer database.")
	rootCmd.PersistentFlags().StringVarP(&onlineWindow, "online-window", "w", "10m", "Window a peer must be seen inside to count as online.")
}

var rootCmd = &cobra.Command{
	Use:   "explorer-admin",
	Short: "Offline administration for the peer database",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
