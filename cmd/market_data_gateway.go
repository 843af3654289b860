/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/bitstamp-client/internal/bootstrap"
	"github.com/spf13/cobra"
)

// marketDataGatewayCmd represents the marketDataGateway command
var marketDataGatewayCmd = &cobra.Command{
	Use:   "market-data-gateway",
	Short: "Market data gateway service",
	Long: `Market Data Gateway serves Bitstamp public market data over HTTP.

Endpoints require an X-API-Key from the api_keys config:
- GET /market-data/v1/ticker/{pair}
- GET /market-data/v1/order-book/{pair}
- GET /market-data/v1/transactions/{pair}?time=minute|hour|day

A gRPC health service runs next to the HTTP server.`,
	Run: bootstrap.StartMarketDataGateway,
}

func init() {
	rootCmd.AddCommand(marketDataGatewayCmd)
}
