package entity

import (
	"context"

	"github.com/shopspring/decimal"
)

type ExchangeName string

const (
	ExchangeBitstamp ExchangeName = "bitstamp"
)

type TransactionInterval string

const (
	TransactionIntervalMinute TransactionInterval = "minute"
	TransactionIntervalHour   TransactionInterval = "hour"
	TransactionIntervalDay    TransactionInterval = "day"
)

type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// UserTransactionsRequest pages through the account's transaction history.
// Zero values fall back to the exchange defaults (limit 100, sort desc).
type UserTransactionsRequest struct {
	Offset int
	Limit  int
	Sort   SortOrder
}

type MarketDataExchange interface {
	Ticker(ctx context.Context, pair string) (*Ticker, error)
	OrderBook(ctx context.Context, pair string) (*OrderBook, error)
	Transactions(ctx context.Context, pair string, interval TransactionInterval) ([]Transaction, error)
}

type AccountExchange interface {
	AccountBalance(ctx context.Context) (Balance, error)
	AllOpenOrders(ctx context.Context) ([]OpenOrder, error)
	OpenOrders(ctx context.Context, pair string) ([]OpenOrder, error)
	BuyMarketOrder(ctx context.Context, pair string, amount decimal.Decimal) (*MarketOrder, error)
	SellMarketOrder(ctx context.Context, pair string, amount decimal.Decimal) (*MarketOrder, error)
	UserTransactions(ctx context.Context, pair string, req UserTransactionsRequest) ([]UserTransaction, error)
}

type Exchange interface {
	MarketDataExchange
	AccountExchange
}
