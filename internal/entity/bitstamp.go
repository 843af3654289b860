package entity

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// FlexInt64 decodes an integer sent either as a JSON number or as a quoted string.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}

	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", raw, err)
	}

	*f = FlexInt64(parsed)
	return nil
}

func (f FlexInt64) Int64() int64 {
	return int64(f)
}

type Ticker struct {
	High      decimal.Decimal `json:"high"`
	Last      decimal.Decimal `json:"last"`
	Timestamp FlexInt64       `json:"timestamp"`
	Bid       decimal.Decimal `json:"bid"`
	VWAP      decimal.Decimal `json:"vwap"`
	Volume    decimal.Decimal `json:"volume"`
	Low       decimal.Decimal `json:"low"`
	Ask       decimal.Decimal `json:"ask"`
	Open      decimal.Decimal `json:"open"`
}

// UnmarshalJSON reads empty or null price fields as zero instead of failing
// the whole ticker.
func (t *Ticker) UnmarshalJSON(data []byte) error {
	var raw struct {
		High      flexDecimal `json:"high"`
		Last      flexDecimal `json:"last"`
		Timestamp FlexInt64   `json:"timestamp"`
		Bid       flexDecimal `json:"bid"`
		VWAP      flexDecimal `json:"vwap"`
		Volume    flexDecimal `json:"volume"`
		Low       flexDecimal `json:"low"`
		Ask       flexDecimal `json:"ask"`
		Open      flexDecimal `json:"open"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Ticker{
		High:      raw.High.Decimal,
		Last:      raw.Last.Decimal,
		Timestamp: raw.Timestamp,
		Bid:       raw.Bid.Decimal,
		VWAP:      raw.VWAP.Decimal,
		Volume:    raw.Volume.Decimal,
		Low:       raw.Low.Decimal,
		Ask:       raw.Ask.Decimal,
		Open:      raw.Open.Decimal,
	}
	return nil
}

type flexDecimal struct {
	decimal.Decimal
}

func (d *flexDecimal) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if raw == "" || raw == "null" {
		d.Decimal = decimal.Zero
		return nil
	}

	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", raw, err)
	}

	d.Decimal = parsed
	return nil
}

func (t Ticker) Time() time.Time {
	return time.Unix(t.Timestamp.Int64(), 0).UTC()
}

type PriceLevel struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// UnmarshalJSON reads the exchange's ["price", "amount"] pair. Extra trailing
// elements (order ids on grouped books) are ignored.
func (p *PriceLevel) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw) < 2 {
		return fmt.Errorf("price level needs 2 elements, got %d", len(raw))
	}

	if err := p.Price.UnmarshalJSON(raw[0]); err != nil {
		return fmt.Errorf("invalid price level price: %w", err)
	}

	if err := p.Amount.UnmarshalJSON(raw[1]); err != nil {
		return fmt.Errorf("invalid price level amount: %w", err)
	}

	return nil
}

type OrderBook struct {
	Timestamp      FlexInt64    `json:"timestamp"`
	Microtimestamp FlexInt64    `json:"microtimestamp"`
	Bids           []PriceLevel `json:"bids"`
	Asks           []PriceLevel `json:"asks"`
}

// Side of a public trade or an order: 0 buy, 1 sell.
const (
	SideBuy  FlexInt64 = 0
	SideSell FlexInt64 = 1
)

type Transaction struct {
	Date   FlexInt64       `json:"date"`
	TID    FlexInt64       `json:"tid"`
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
	Type   FlexInt64       `json:"type"`
}

// Balance maps the exchange's balance keys (usd_balance, btc_available,
// btcusd_fee, ...) to their values.
type Balance map[string]decimal.Decimal

func (b Balance) Available(currency string) decimal.Decimal {
	return b[strings.ToLower(currency)+"_available"]
}

func (b Balance) Total(currency string) decimal.Decimal {
	return b[strings.ToLower(currency)+"_balance"]
}

func (b Balance) Fee(pair string) decimal.Decimal {
	return b[strings.ToLower(pair)+"_fee"]
}

type OpenOrder struct {
	ID           FlexInt64       `json:"id"`
	Datetime     string          `json:"datetime"`
	Type         FlexInt64       `json:"type"`
	Price        decimal.Decimal `json:"price"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyPair string          `json:"currency_pair"`
}

type MarketOrder struct {
	ID       FlexInt64       `json:"id"`
	Datetime string          `json:"datetime"`
	Type     FlexInt64       `json:"type"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
}

// User transaction types.
const (
	UserTransactionDeposit     FlexInt64 = 0
	UserTransactionWithdrawal  FlexInt64 = 1
	UserTransactionMarketTrade FlexInt64 = 2
)

// UserTransaction is one row of the account history. Per-currency columns
// (usd, btc, btc_usd, ...) vary by pair and are collected in Amounts.
type UserTransaction struct {
	ID       FlexInt64                  `json:"id"`
	Datetime string                     `json:"datetime"`
	Type     FlexInt64                  `json:"type"`
	Fee      decimal.Decimal            `json:"fee"`
	OrderID  null.Int                   `json:"order_id"`
	Amounts  map[string]decimal.Decimal `json:"amounts"`
}

var userTransactionKnownKeys = map[string]struct{}{
	"id":       {},
	"datetime": {},
	"type":     {},
	"fee":      {},
	"order_id": {},
}

func (u *UserTransaction) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["id"]; ok {
		if err := u.ID.UnmarshalJSON(v); err != nil {
			return fmt.Errorf("invalid user transaction id: %w", err)
		}
	}

	if v, ok := raw["datetime"]; ok {
		if err := json.Unmarshal(v, &u.Datetime); err != nil {
			return fmt.Errorf("invalid user transaction datetime: %w", err)
		}
	}

	if v, ok := raw["type"]; ok {
		if err := u.Type.UnmarshalJSON(v); err != nil {
			return fmt.Errorf("invalid user transaction type: %w", err)
		}
	}

	if v, ok := raw["fee"]; ok {
		if err := u.Fee.UnmarshalJSON(v); err != nil {
			return fmt.Errorf("invalid user transaction fee: %w", err)
		}
	}

	u.OrderID = null.Int{}
	if v, ok := raw["order_id"]; ok && !isJSONNull(v) {
		var orderID FlexInt64
		if err := orderID.UnmarshalJSON(v); err != nil {
			return fmt.Errorf("invalid user transaction order id: %w", err)
		}
		u.OrderID = null.IntFrom(orderID.Int64())
	}

	u.Amounts = make(map[string]decimal.Decimal)
	for key, v := range raw {
		if _, known := userTransactionKnownKeys[key]; known || isJSONNull(v) {
			continue
		}

		var amount decimal.Decimal
		if err := amount.UnmarshalJSON(v); err != nil {
			return fmt.Errorf("invalid user transaction %s: %w", key, err)
		}
		u.Amounts[key] = amount
	}

	return nil
}

// DatetimeUTC parses the exchange's "2006-01-02 15:04:05.000000" timestamps.
func (u UserTransaction) DatetimeUTC() (time.Time, error) {
	return time.ParseInLocation(time.DateTime, u.Datetime, time.UTC)
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
