package usertransaction

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"github.com/krobus00/bitstamp-client/internal/config"
	"github.com/krobus00/bitstamp-client/internal/constant"
	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/sirupsen/logrus"
)

const (
	defaultSyncInterval = 1 * time.Minute
	defaultSyncPageSize = 100
	maxSyncPageSize     = 1000
	// the exchange rejects deeper offsets
	maxSyncOffset = 200000
)

type UserTransactionRepository interface {
	Upsert(ctx context.Context, records []entity.UserTransactionRecord) (int64, error)
	GetLatestID(ctx context.Context, exchange, pair string) (null.Int, error)
}

// SyncResult reports one pair's run. Truncated means paging hit the offset
// limit before reaching the cursor.
type SyncResult struct {
	Pair      string
	Fetched   int
	Inserted  int64
	Cursor    int64
	Skipped   bool
	Truncated bool
}

type UserTransactionSyncService struct {
	exchangeName entity.ExchangeName
	exchange     entity.AccountExchange
	repo         UserTransactionRepository
	store        CursorStore
	pairs        []string
	interval     time.Duration
	pageSize     int
	maxOffset    int
	lockTTL      time.Duration
	now          func() time.Time
	newOwnerID   func() string
}

func NewUserTransactionSyncService(exchangeName entity.ExchangeName, exchange entity.AccountExchange, repo UserTransactionRepository, store CursorStore, cfg config.UserTransactionSyncConfig) *UserTransactionSyncService {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultSyncPageSize
	}
	pageSize = min(pageSize, maxSyncPageSize)

	pairs := make([]string, 0, len(cfg.Pairs))
	for _, pair := range cfg.Pairs {
		pair = strings.ToLower(strings.TrimSpace(pair))
		if pair == "" {
			continue
		}
		pairs = append(pairs, pair)
	}

	return &UserTransactionSyncService{
		exchangeName: exchangeName,
		exchange:     exchange,
		repo:         repo,
		store:        store,
		pairs:        pairs,
		interval:     interval,
		pageSize:     pageSize,
		maxOffset:    maxSyncOffset,
		lockTTL:      cfg.LockTTL,
		now:          time.Now,
		newOwnerID:   uuid.NewString,
	}
}

func (s *UserTransactionSyncService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SyncAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncAll(ctx)
		}
	}
}

func (s *UserTransactionSyncService) SyncAll(ctx context.Context) {
	for _, pair := range s.pairs {
		if ctx.Err() != nil {
			return
		}

		result, err := s.SyncPair(ctx, pair)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"exchange": s.exchangeName,
				"pair":     pair,
			}).WithError(err).Error("failed to sync user transactions")
			continue
		}

		logrus.WithFields(logrus.Fields{
			"exchange":  s.exchangeName,
			"pair":      pair,
			"fetched":   result.Fetched,
			"inserted":  result.Inserted,
			"cursor":    result.Cursor,
			"skipped":   result.Skipped,
			"truncated": result.Truncated,
		}).Debug("user transactions synced")
	}
}

// SyncPair stores every transaction newer than the pair's cursor. Pages are
// read newest first until one reaches the cursor or runs out.
func (s *UserTransactionSyncService) SyncPair(ctx context.Context, pair string) (result SyncResult, err error) {
	result.Pair = pair
	key := constant.GetUserTransactionCursorKey(string(s.exchangeName), pair)
	owner := s.newOwnerID()

	acquired, err := s.store.AcquireProcessingLock(ctx, key, s.lockTTL, owner)
	if err != nil {
		return result, err
	}
	if !acquired {
		result.Skipped = true
		return result, nil
	}
	defer func() {
		releaseErr := s.store.ReleaseProcessingLock(context.WithoutCancel(ctx), key, owner)
		if releaseErr != nil {
			logrus.WithField("key", key).WithError(releaseErr).Warn("failed to release processing lock")
		}
	}()

	cursor, found, err := s.loadCursor(ctx, key, pair)
	if err != nil {
		return result, err
	}
	result.Cursor = cursor

	newer := make([]entity.UserTransaction, 0)
	result.Truncated = true
	for offset := 0; offset <= s.maxOffset; offset += s.pageSize {
		page, err := s.exchange.UserTransactions(ctx, pair, entity.UserTransactionsRequest{
			Offset: offset,
			Limit:  s.pageSize,
			Sort:   entity.SortOrderDesc,
		})
		if err != nil {
			return result, err
		}
		result.Fetched += len(page)

		reachedCursor := false
		for _, tx := range page {
			if found && tx.ID.Int64() <= cursor {
				reachedCursor = true
				break
			}
			newer = append(newer, tx)
		}

		if reachedCursor || len(page) < s.pageSize {
			result.Truncated = false
			break
		}
	}

	if result.Truncated {
		logrus.WithFields(logrus.Fields{
			"exchange":   s.exchangeName,
			"pair":       pair,
			"max_offset": s.maxOffset,
			"cursor":     cursor,
			"fetched":    result.Fetched,
		}).Warn("user transaction paging stopped at max offset, older transactions were not synced")
	}

	if len(newer) == 0 {
		return result, nil
	}

	now := s.now()
	records := make([]entity.UserTransactionRecord, 0, len(newer))
	latestID := cursor
	for _, tx := range newer {
		record, err := entity.NewUserTransactionRecord(s.exchangeName, pair, tx, now)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"pair": pair,
				"id":   tx.ID.Int64(),
			}).WithError(err).Warn("skipping user transaction")
			continue
		}

		records = append(records, record)
		latestID = max(latestID, record.ID)
	}

	for start := 0; start < len(records); start += s.pageSize {
		end := min(start+s.pageSize, len(records))
		inserted, err := s.repo.Upsert(ctx, records[start:end])
		if err != nil {
			return result, err
		}
		result.Inserted += inserted
	}

	if latestID > cursor || !found {
		err = s.store.Save(ctx, key, latestID)
		if err != nil {
			return result, err
		}
	}
	result.Cursor = latestID

	return result, nil
}

// loadCursor reads the redis cursor and falls back to the newest stored row.
func (s *UserTransactionSyncService) loadCursor(ctx context.Context, key, pair string) (int64, bool, error) {
	cursor, found, err := s.store.Load(ctx, key)
	if err != nil || found {
		return cursor, found, err
	}

	latestID, err := s.repo.GetLatestID(ctx, string(s.exchangeName), pair)
	if err != nil {
		return 0, false, err
	}
	if !latestID.Valid {
		return 0, false, nil
	}

	return latestID.Int64, true, nil
}
