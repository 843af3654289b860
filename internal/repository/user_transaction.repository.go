package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/guregu/null/v6"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/bitstamp-client/internal/entity"
)

type UserTransactionRepository struct {
	db *sqlx.DB
}

func NewUserTransactionRepository(db *sqlx.DB) *UserTransactionRepository {
	return &UserTransactionRepository{db: db}
}

// Upsert inserts the rows in one statement and ignores ids that are already
// stored. It returns the number of rows actually inserted.
func (r *UserTransactionRepository) Upsert(ctx context.Context, records []entity.UserTransactionRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(records[0].TableName()).
		Columns(
			"id",
			"exchange",
			"pair",
			"type",
			"fee",
			"order_id",
			"amounts",
			"transacted_at",
			"created_at",
		)

	for _, record := range records {
		queryBuilder = queryBuilder.Values(
			record.ID,
			record.Exchange,
			record.Pair,
			record.Type,
			record.Fee,
			record.OrderID,
			record.Amounts,
			record.TransactedAt,
			record.CreatedAt,
		)
	}

	query, args, err := queryBuilder.Suffix("ON CONFLICT (exchange, id) DO NOTHING").ToSql()
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// GetLatestID returns the highest stored transaction id for the pair, or an
// invalid null.Int when nothing was synced yet.
func (r *UserTransactionRepository) GetLatestID(ctx context.Context, exchange, pair string) (null.Int, error) {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("MAX(id)").
		From(entity.UserTransactionRecord{}.TableName()).
		Where(sq.Eq{"exchange": exchange, "pair": pair})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return null.Int{}, err
	}

	var latestID null.Int
	err = r.db.GetContext(ctx, &latestID, query, args...)
	if err != nil {
		return null.Int{}, err
	}

	return latestID, nil
}
