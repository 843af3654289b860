package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type MarketTickerEvent struct {
	ID         string       `json:"id"`
	RetryCount int          `json:"retry"`
	Data       MarketTicker `json:"data"`
}

type MarketTicker struct {
	ID         string          `db:"id" json:"id"`
	Exchange   string          `db:"exchange" json:"exchange"`
	Pair       string          `db:"pair" json:"pair"`
	High       decimal.Decimal `db:"high" json:"high"`
	Low        decimal.Decimal `db:"low" json:"low"`
	Last       decimal.Decimal `db:"last" json:"last"`
	Open       decimal.Decimal `db:"open" json:"open"`
	Bid        decimal.Decimal `db:"bid" json:"bid"`
	Ask        decimal.Decimal `db:"ask" json:"ask"`
	VWAP       decimal.Decimal `db:"vwap" json:"vwap"`
	Volume     decimal.Decimal `db:"volume" json:"volume"`
	TickedAt   time.Time       `db:"ticked_at" json:"ticked_at"`
	ReceivedAt time.Time       `db:"received_at" json:"received_at"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

func (m MarketTicker) TableName() string {
	return "market_tickers"
}

func NewMarketTicker(exchange ExchangeName, pair string, ticker Ticker, receivedAt time.Time) MarketTicker {
	return MarketTicker{
		Exchange:   string(exchange),
		Pair:       pair,
		High:       ticker.High,
		Low:        ticker.Low,
		Last:       ticker.Last,
		Open:       ticker.Open,
		Bid:        ticker.Bid,
		Ask:        ticker.Ask,
		VWAP:       ticker.VWAP,
		Volume:     ticker.Volume,
		TickedAt:   ticker.Time(),
		ReceivedAt: receivedAt.UTC(),
	}
}
