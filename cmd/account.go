/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/bitstamp-client/internal/bootstrap"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the account balance",
	Args:  cobra.NoArgs,
	Run:   bootstrap.RunBalance,
}

var openOrdersCmd = &cobra.Command{
	Use:   "open-orders [pair]",
	Short: "List open orders of a pair, or of all pairs",
	Args:  cobra.MaximumNArgs(1),
	Run:   bootstrap.RunOpenOrders,
}

var buyMarketCmd = &cobra.Command{
	Use:     "buy-market <pair> <amount>",
	Short:   "Place a market buy order",
	Example: "bitstamp-client buy-market btcusd 0.001",
	Args:    cobra.ExactArgs(2),
	Run:     bootstrap.RunBuyMarket,
}

var sellMarketCmd = &cobra.Command{
	Use:     "sell-market <pair> <amount>",
	Short:   "Place a market sell order",
	Example: "bitstamp-client sell-market btcusd 0.001",
	Args:    cobra.ExactArgs(2),
	Run:     bootstrap.RunSellMarket,
}

var userTransactionsCmd = &cobra.Command{
	Use:     "user-transactions <pair>",
	Short:   "List the account's transactions of a pair",
	Example: "bitstamp-client user-transactions btcusd --limit 50 --sort asc",
	Args:    cobra.ExactArgs(1),
	Run:     bootstrap.RunUserTransactions,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(openOrdersCmd)
	rootCmd.AddCommand(buyMarketCmd)
	rootCmd.AddCommand(sellMarketCmd)
	rootCmd.AddCommand(userTransactionsCmd)

	userTransactionsCmd.Flags().Int("offset", 0, "number of transactions to skip")
	userTransactionsCmd.Flags().Int("limit", 100, "number of transactions to return (max 1000)")
	userTransactionsCmd.Flags().String("sort", "desc", "sort order asc|desc")
}
