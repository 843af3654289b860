/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/bitstamp-client/internal/bootstrap"
	"github.com/spf13/cobra"
)

// marketDataPollerCmd represents the marketDataPoller command
var marketDataPollerCmd = &cobra.Command{
	Use:   "market-data-poller",
	Short: "Poll Bitstamp tickers and publish them to nats",
	Long: `Fetches the ticker of every pair in market_data.pairs each market_data.poll_interval
and publishes it to the ticker stream.`,
	Run: bootstrap.StartMarketDataPoller,
}

func init() {
	rootCmd.AddCommand(marketDataPollerCmd)
}
