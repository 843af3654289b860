package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/krobus00/bitstamp-client/internal/service/exchange"
	"github.com/krobus00/bitstamp-client/internal/util"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type exchangeCall func(ctx context.Context, bitstamp *exchange.BitstampExchange) (any, error)

// runExchangeCommand performs one exchange call and prints the result as
// indented JSON on the command's stdout.
func runExchangeCommand(cmd *cobra.Command, call exchangeCall) {
	runBitstampCommand(cmd, false, call)
}

// runPrivateExchangeCommand fails fast on missing credentials.
func runPrivateExchangeCommand(cmd *cobra.Command, call exchangeCall) {
	runBitstampCommand(cmd, true, call)
}

func runBitstampCommand(cmd *cobra.Command, private bool, call exchangeCall) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bitstamp := initBitstamp()
	if private {
		util.ContinueOrFatal(bitstamp.ValidateCredentials())
	}

	result, err := call(ctx, bitstamp)
	if err != nil {
		logrus.WithField("command", cmd.Name()).WithError(err).Fatal("exchange call failed")
	}

	err = util.WriteIndentedJSON(cmd.OutOrStdout(), result)
	util.ContinueOrFatal(err)
}

func RunTicker(cmd *cobra.Command, args []string) {
	runExchangeCommand(cmd, func(ctx context.Context, bitstamp *exchange.BitstampExchange) (any, error) {
		return bitstamp.Ticker(ctx, args[0])
	})
}

func RunOrderBook(cmd *cobra.Command, args []string) {
	runExchangeCommand(cmd, func(ctx context.Context, bitstamp *exchange.BitstampExchange) (any, error) {
		return bitstamp.OrderBook(ctx, args[0])
	})
}

func RunTransactions(cmd *cobra.Command, args []string) {
	interval, _ := cmd.Flags().GetString("time")

	runExchangeCommand(cmd, func(ctx context.Context, bitstamp *exchange.BitstampExchange) (any, error) {
		return bitstamp.Transactions(ctx, args[0], entity.TransactionInterval(interval))
	})
}

func RunBalance(cmd *cobra.Command, args []string) {
	runPrivateExchangeCommand(cmd, func(ctx context.Context, bitstamp *exchange.BitstampExchange) (any, error) {
		return bitstamp.AccountBalance(ctx)
	})
}

// RunOpenOrders lists open orders of one pair, or of every pair when no pair
// is given.
func RunOpenOrders(cmd *cobra.Command, args []string) {
	runPrivateExchangeCommand(cmd, func(ctx context.Context, bitstamp *exchange.BitstampExchange) (any, error) {
		if len(args) == 0 {
			return bitstamp.AllOpenOrders(ctx)
		}
		return bitstamp.OpenOrders(ctx, args[0])
	})
}

func RunBuyMarket(cmd *cobra.Command, args []string) {
	amount, err := decimal.NewFromString(args[1])
	util.ContinueOrFatal(err)

	runPrivateExchangeCommand(cmd, func(ctx context.Context, bitstamp *exchange.BitstampExchange) (any, error) {
		return bitstamp.BuyMarketOrder(ctx, args[0], amount)
	})
}

func RunSellMarket(cmd *cobra.Command, args []string) {
	amount, err := decimal.NewFromString(args[1])
	util.ContinueOrFatal(err)

	runPrivateExchangeCommand(cmd, func(ctx context.Context, bitstamp *exchange.BitstampExchange) (any, error) {
		return bitstamp.SellMarketOrder(ctx, args[0], amount)
	})
}

func RunUserTransactions(cmd *cobra.Command, args []string) {
	offset, _ := cmd.Flags().GetInt("offset")
	limit, _ := cmd.Flags().GetInt("limit")
	sort, _ := cmd.Flags().GetString("sort")

	runPrivateExchangeCommand(cmd, func(ctx context.Context, bitstamp *exchange.BitstampExchange) (any, error) {
		return bitstamp.UserTransactions(ctx, args[0], entity.UserTransactionsRequest{
			Offset: offset,
			Limit:  limit,
			Sort:   entity.SortOrder(sort),
		})
	})
}
