package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ethernova/explorer/foundation/collector/database"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print aggregate stats from the peer database.",
	Run:   statsRun,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func statsRun(cmd *cobra.Command, args []string) {
	window, err := time.ParseDuration(onlineWindow)
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	cutoff := time.Now().Add(-window)

	total, online, err := db.Counts(ctx, cutoff)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("nodes seen total:", total)
	fmt.Println("nodes online:    ", online)

	countries, err := db.TopCountries(ctx, cutoff)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("\ntop countries (online/total)")
	for _, cs := range countries {
		fmt.Printf("  %-12s %-24s %d/%d\n", cs.Code, cs.Name, cs.Online, cs.Total)
	}

	asns, err := db.TopASNs(ctx, cutoff)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("\ntop asns (online/total)")
	for _, as := range asns {
		fmt.Printf("  AS%-10d %-24s %d/%d\n", as.ASN, as.Org, as.Online, as.Total)
	}

	clients, err := db.TopClients(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("\ntop clients")
	for _, cc := range clients {
		fmt.Printf("  %-36s %d\n", cc.Client, cc.Count)
	}
}
