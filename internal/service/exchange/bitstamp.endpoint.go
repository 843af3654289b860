package exchange

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/shopspring/decimal"
)

const (
	bitstampDefaultUserTransactionsLimit = 100
	bitstampMaxUserTransactionsLimit     = 1000
)

var bitstampPairPattern = regexp.MustCompile(`^[a-z0-9]+$`)

func (e *BitstampExchange) OrderBook(ctx context.Context, pair string) (*entity.OrderBook, error) {
	normalizedPair, err := normalizeBitstampPair(pair)
	if err != nil {
		return nil, err
	}

	var orderBook entity.OrderBook
	err = e.PublicRequest(ctx, fmt.Sprintf("/v2/order_book/%s/", normalizedPair), &orderBook)
	if err != nil {
		return nil, err
	}

	return &orderBook, nil
}

func (e *BitstampExchange) Ticker(ctx context.Context, pair string) (*entity.Ticker, error) {
	normalizedPair, err := normalizeBitstampPair(pair)
	if err != nil {
		return nil, err
	}

	var ticker entity.Ticker
	err = e.PublicRequest(ctx, fmt.Sprintf("/v2/ticker/%s/", normalizedPair), &ticker)
	if err != nil {
		return nil, err
	}

	return &ticker, nil
}

// Transactions returns public trades of the last minute, hour (default) or day.
func (e *BitstampExchange) Transactions(ctx context.Context, pair string, interval entity.TransactionInterval) ([]entity.Transaction, error) {
	normalizedPair, err := normalizeBitstampPair(pair)
	if err != nil {
		return nil, err
	}

	if interval == "" {
		interval = entity.TransactionIntervalHour
	}

	switch interval {
	case entity.TransactionIntervalMinute, entity.TransactionIntervalHour, entity.TransactionIntervalDay:
	default:
		return nil, &ValidationError{Field: "time", Reason: fmt.Sprintf("unsupported interval %q", interval)}
	}

	transactions := make([]entity.Transaction, 0)
	err = e.PublicRequest(ctx, fmt.Sprintf("/v2/transactions/%s/?time=%s", normalizedPair, interval), &transactions)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (e *BitstampExchange) AccountBalance(ctx context.Context) (entity.Balance, error) {
	balance := make(entity.Balance)
	err := e.PrivateRequest(ctx, "/v2/balance/", url.Values{}, &balance)
	if err != nil {
		return nil, err
	}

	return balance, nil
}

func (e *BitstampExchange) AllOpenOrders(ctx context.Context) ([]entity.OpenOrder, error) {
	openOrders := make([]entity.OpenOrder, 0)
	err := e.PrivateRequest(ctx, "/v2/open_orders/all/", url.Values{}, &openOrders)
	if err != nil {
		return nil, err
	}

	return openOrders, nil
}

func (e *BitstampExchange) OpenOrders(ctx context.Context, pair string) ([]entity.OpenOrder, error) {
	normalizedPair, err := normalizeBitstampPair(pair)
	if err != nil {
		return nil, err
	}

	openOrders := make([]entity.OpenOrder, 0)
	err = e.PrivateRequest(ctx, fmt.Sprintf("/v2/open_orders/%s", normalizedPair), url.Values{}, &openOrders)
	if err != nil {
		return nil, err
	}

	return openOrders, nil
}

func (e *BitstampExchange) BuyMarketOrder(ctx context.Context, pair string, amount decimal.Decimal) (*entity.MarketOrder, error) {
	return e.marketOrder(ctx, "buy", pair, amount)
}

func (e *BitstampExchange) SellMarketOrder(ctx context.Context, pair string, amount decimal.Decimal) (*entity.MarketOrder, error) {
	return e.marketOrder(ctx, "sell", pair, amount)
}

func (e *BitstampExchange) marketOrder(ctx context.Context, side string, pair string, amount decimal.Decimal) (*entity.MarketOrder, error) {
	normalizedPair, err := normalizeBitstampPair(pair)
	if err != nil {
		return nil, err
	}

	if !amount.GreaterThan(decimal.Zero) {
		return nil, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}

	params := url.Values{}
	params.Set("amount", LimitTo8Decimals(amount))

	var order entity.MarketOrder
	err = e.PrivateRequest(ctx, fmt.Sprintf("/v2/%s/market/%s/", side, normalizedPair), params, &order)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// UserTransactions returns the account history for pair, newest first unless
// req.Sort says otherwise.
func (e *BitstampExchange) UserTransactions(ctx context.Context, pair string, req entity.UserTransactionsRequest) ([]entity.UserTransaction, error) {
	normalizedPair, err := normalizeBitstampPair(pair)
	if err != nil {
		return nil, err
	}

	params, err := userTransactionsParams(req)
	if err != nil {
		return nil, err
	}

	userTransactions := make([]entity.UserTransaction, 0)
	err = e.PrivateRequest(ctx, fmt.Sprintf("/v2/user_transactions/%s/", normalizedPair), params, &userTransactions)
	if err != nil {
		return nil, err
	}

	return userTransactions, nil
}

func userTransactionsParams(req entity.UserTransactionsRequest) (url.Values, error) {
	if req.Offset < 0 {
		return nil, &ValidationError{Field: "offset", Reason: "must not be negative"}
	}

	limit := req.Limit
	if limit == 0 {
		limit = bitstampDefaultUserTransactionsLimit
	}
	if limit < 0 || limit > bitstampMaxUserTransactionsLimit {
		return nil, &ValidationError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", bitstampMaxUserTransactionsLimit)}
	}

	sort := req.Sort
	if sort == "" {
		sort = entity.SortOrderDesc
	}
	if sort != entity.SortOrderAsc && sort != entity.SortOrderDesc {
		return nil, &ValidationError{Field: "sort", Reason: fmt.Sprintf("unsupported sort %q", sort)}
	}

	params := url.Values{}
	params.Set("offset", strconv.Itoa(req.Offset))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort", string(sort))

	return params, nil
}

func normalizeBitstampPair(pair string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(pair))
	if normalized == "" {
		return "", &ValidationError{Field: "pair", Reason: "is required"}
	}

	if !bitstampPairPattern.MatchString(normalized) {
		return "", &ValidationError{Field: "pair", Reason: fmt.Sprintf("unsupported pair %q", pair)}
	}

	return normalized, nil
}
