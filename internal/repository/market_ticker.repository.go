package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/bitstamp-client/internal/entity"
)

type MarketTickerRepository struct {
	db *sqlx.DB
}

func NewMarketTickerRepository(db *sqlx.DB) *MarketTickerRepository {
	return &MarketTickerRepository{db: db}
}

func (r *MarketTickerRepository) Create(ctx context.Context, data *entity.MarketTicker) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(data.TableName()).
		Columns(
			"exchange",
			"pair",
			"high",
			"low",
			"last",
			"open",
			"bid",
			"ask",
			"vwap",
			"volume",
			"ticked_at",
			"received_at",
			"created_at",
		).
		Values(
			data.Exchange,
			data.Pair,
			data.High,
			data.Low,
			data.Last,
			data.Open,
			data.Bid,
			data.Ask,
			data.VWAP,
			data.Volume,
			data.TickedAt,
			data.ReceivedAt,
			data.CreatedAt,
		).
		Suffix("RETURNING id")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	var id string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err != nil {
		return err
	}

	data.ID = id

	return nil
}
