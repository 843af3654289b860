package entity

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/guregu/null/v6"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

type UserTransactionRecord struct {
	ID           int64           `db:"id" json:"id"`
	Exchange     string          `db:"exchange" json:"exchange"`
	Pair         string          `db:"pair" json:"pair"`
	Type         int64           `db:"type" json:"type"`
	Fee          decimal.Decimal `db:"fee" json:"fee"`
	OrderID      null.Int        `db:"order_id" json:"order_id"`
	Amounts      types.JSONText  `db:"amounts" json:"amounts"`
	TransactedAt time.Time       `db:"transacted_at" json:"transacted_at"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

func (u UserTransactionRecord) TableName() string {
	return "user_transactions"
}

func NewUserTransactionRecord(exchange ExchangeName, pair string, tx UserTransaction, now time.Time) (UserTransactionRecord, error) {
	transactedAt, err := tx.DatetimeUTC()
	if err != nil {
		return UserTransactionRecord{}, fmt.Errorf("invalid user transaction datetime %q: %w", tx.Datetime, err)
	}

	amounts, err := json.Marshal(tx.Amounts)
	if err != nil {
		return UserTransactionRecord{}, err
	}

	return UserTransactionRecord{
		ID:           tx.ID.Int64(),
		Exchange:     string(exchange),
		Pair:         pair,
		Type:         tx.Type.Int64(),
		Fee:          tx.Fee,
		OrderID:      tx.OrderID,
		Amounts:      types.JSONText(amounts),
		TransactedAt: transactedAt,
		CreatedAt:    now.UTC(),
	}, nil
}
