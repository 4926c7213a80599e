package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ethernova/explorer/foundation/collector/database"
	"github.com/ethernova/explorer/foundation/collector/export"
	"github.com/spf13/cobra"
)

var (
	exportLimit      int
	exportOnlyOnline bool
	bootnodesPath    string
	staticNodesPath  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the bootnode artifact files from the peer database.",
	Run:   exportRun,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().IntVarP(&exportLimit, "limit", "l", 200, "Maximum number of entries to export.")
	exportCmd.Flags().BoolVar(&exportOnlyOnline, "only-online", true, "Export only peers seen inside the online window.")
	exportCmd.Flags().StringVar(&bootnodesPath, "bootnodes", "zarea/bootnodes.txt", "Path to the plain-text bootnodes file.")
	exportCmd.Flags().StringVar(&staticNodesPath, "static-nodes", "zarea/static-nodes.json", "Path to the JSON static nodes file.")
}

func exportRun(cmd *cobra.Command, args []string) {
	window, err := time.ParseDuration(onlineWindow)
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	now := time.Now()
	cfg := export.Config{
		Limit:           exportLimit,
		OnlyOnline:      exportOnlyOnline,
		BootnodesPath:   bootnodesPath,
		StaticNodesPath: staticNodesPath,
	}

	if err := export.Write(context.Background(), db, cfg, now.Add(-window), now); err != nil {
		log.Fatal(err)
	}

	fmt.Println("wrote", bootnodesPath)
	fmt.Println("wrote", staticNodesPath)
}
