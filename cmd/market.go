/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/bitstamp-client/internal/bootstrap"
	"github.com/spf13/cobra"
)

var tickerCmd = &cobra.Command{
	Use:     "ticker <pair>",
	Short:   "Show the ticker of a pair",
	Example: "bitstamp-client ticker btcusd",
	Args:    cobra.ExactArgs(1),
	Run:     bootstrap.RunTicker,
}

var orderBookCmd = &cobra.Command{
	Use:     "order-book <pair>",
	Short:   "Show the order book of a pair",
	Example: "bitstamp-client order-book btcusd",
	Args:    cobra.ExactArgs(1),
	Run:     bootstrap.RunOrderBook,
}

var transactionsCmd = &cobra.Command{
	Use:     "transactions <pair>",
	Short:   "Show the public trades of a pair",
	Example: "bitstamp-client transactions btcusd --time minute",
	Args:    cobra.ExactArgs(1),
	Run:     bootstrap.RunTransactions,
}

func init() {
	rootCmd.AddCommand(tickerCmd)
	rootCmd.AddCommand(orderBookCmd)
	rootCmd.AddCommand(transactionsCmd)

	transactionsCmd.Flags().String("time", "hour", "interval minute|hour|day")
}
