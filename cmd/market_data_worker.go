/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/bitstamp-client/internal/bootstrap"
	"github.com/spf13/cobra"
)

// marketDataWorkerCmd represents the marketDataWorker command
var marketDataWorkerCmd = &cobra.Command{
	Use:   "market-data-worker",
	Short: "Store ticker events published by market-data-poller",
	Long: `Consumes ticker events from the ticker stream and stores them in postgres.
Failed inserts are published again until nats_jetstream.max_retries is reached.`,
	Run: bootstrap.StartMarketDataWorker,
}

func init() {
	rootCmd.AddCommand(marketDataWorkerCmd)
}
