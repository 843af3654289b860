package usertransaction

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/krobus00/bitstamp-client/internal/config"
	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAccount serves history newest first, paged like the exchange does.
type fakeAccount struct {
	history  []entity.UserTransaction
	err      error
	requests []entity.UserTransactionsRequest
}

func (f *fakeAccount) UserTransactions(ctx context.Context, pair string, req entity.UserTransactionsRequest) ([]entity.UserTransaction, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}

	if req.Offset >= len(f.history) {
		return []entity.UserTransaction{}, nil
	}

	end := min(req.Offset+req.Limit, len(f.history))
	return f.history[req.Offset:end], nil
}

func (f *fakeAccount) AccountBalance(ctx context.Context) (entity.Balance, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAccount) AllOpenOrders(ctx context.Context) ([]entity.OpenOrder, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAccount) OpenOrders(ctx context.Context, pair string) ([]entity.OpenOrder, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAccount) BuyMarketOrder(ctx context.Context, pair string, amount decimal.Decimal) (*entity.MarketOrder, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAccount) SellMarketOrder(ctx context.Context, pair string, amount decimal.Decimal) (*entity.MarketOrder, error) {
	return nil, errors.New("not implemented")
}

type fakeRepo struct {
	latestID null.Int
	upserted []entity.UserTransactionRecord
	batches  int
	err      error
}

func (r *fakeRepo) Upsert(ctx context.Context, records []entity.UserTransactionRecord) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.batches++
	r.upserted = append(r.upserted, records...)
	return int64(len(records)), nil
}

func (r *fakeRepo) GetLatestID(ctx context.Context, exchange, pair string) (null.Int, error) {
	return r.latestID, nil
}

type fakeStore struct {
	cursors  map[string]int64
	locks    map[string]string
	released []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{cursors: map[string]int64{}, locks: map[string]string{}}
}

func (s *fakeStore) Load(ctx context.Context, key string) (int64, bool, error) {
	cursor, ok := s.cursors[key]
	return cursor, ok, nil
}

func (s *fakeStore) Save(ctx context.Context, key string, cursor int64) error {
	s.cursors[key] = cursor
	return nil
}

func (s *fakeStore) AcquireProcessingLock(ctx context.Context, key string, ttl time.Duration, owner string) (bool, error) {
	if _, held := s.locks[key]; held {
		return false, nil
	}
	s.locks[key] = owner
	return true, nil
}

func (s *fakeStore) ReleaseProcessingLock(ctx context.Context, key string, owner string) error {
	if s.locks[key] == owner {
		delete(s.locks, key)
	}
	s.released = append(s.released, key)
	return nil
}

const cursorKey = "bitstamp:user_transactions:btcusd:cursor"

func newHistory(ids ...int64) []entity.UserTransaction {
	history := make([]entity.UserTransaction, 0, len(ids))
	for _, id := range ids {
		history = append(history, entity.UserTransaction{
			ID:       entity.FlexInt64(id),
			Datetime: "2024-05-01 10:00:00.000000",
			Type:     entity.UserTransactionMarketTrade,
			Fee:      decimal.RequireFromString("0.1"),
			OrderID:  null.IntFrom(id * 10),
			Amounts:  map[string]decimal.Decimal{"usd": decimal.RequireFromString("-10")},
		})
	}
	return history
}

func newTestSyncService(account *fakeAccount, repo *fakeRepo, store *fakeStore, pageSize int) *UserTransactionSyncService {
	service := NewUserTransactionSyncService(entity.ExchangeBitstamp, account, repo, store, config.UserTransactionSyncConfig{
		Pairs:    []string{"BTCUSD"},
		PageSize: pageSize,
	})
	service.now = func() time.Time { return time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC) }
	service.newOwnerID = func() string { return "owner-1" }
	return service
}

func TestUserTransactionSyncService_SyncPair(t *testing.T) {
	t.Run("first sync pages through the whole history", func(t *testing.T) {
		account := &fakeAccount{history: newHistory(7, 6, 5, 4, 3)}
		repo := &fakeRepo{}
		store := newFakeStore()
		service := newTestSyncService(account, repo, store, 2)

		result, err := service.SyncPair(context.Background(), "btcusd")
		require.NoError(t, err)

		assert.Equal(t, 5, result.Fetched)
		assert.Equal(t, int64(5), result.Inserted)
		assert.Equal(t, int64(7), result.Cursor)
		assert.Equal(t, int64(7), store.cursors[cursorKey])
		assert.Len(t, repo.upserted, 5)
		assert.Equal(t, 3, repo.batches)

		require.Len(t, account.requests, 3)
		for idx, req := range account.requests {
			assert.Equal(t, idx*2, req.Offset)
			assert.Equal(t, 2, req.Limit)
			assert.Equal(t, entity.SortOrderDesc, req.Sort)
		}

		record := repo.upserted[0]
		assert.Equal(t, int64(7), record.ID)
		assert.Equal(t, "btcusd", record.Pair)
		assert.Equal(t, null.IntFrom(70), record.OrderID)
		assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), record.TransactedAt)
		assert.JSONEq(t, `{"usd":"-10"}`, string(record.Amounts))

		assert.Empty(t, store.locks)
		assert.Equal(t, []string{cursorKey}, store.released)
	})

	t.Run("stops at the cursor", func(t *testing.T) {
		account := &fakeAccount{history: newHistory(9, 8, 7, 6, 5)}
		repo := &fakeRepo{}
		store := newFakeStore()
		store.cursors[cursorKey] = 7
		service := newTestSyncService(account, repo, store, 2)

		result, err := service.SyncPair(context.Background(), "btcusd")
		require.NoError(t, err)

		assert.Equal(t, int64(2), result.Inserted)
		assert.Equal(t, int64(9), store.cursors[cursorKey])
		assert.Len(t, account.requests, 2)

		ids := make([]int64, 0, len(repo.upserted))
		for _, record := range repo.upserted {
			ids = append(ids, record.ID)
		}
		assert.Equal(t, []int64{9, 8}, ids)
	})

	t.Run("falls back to the newest stored id", func(t *testing.T) {
		account := &fakeAccount{history: newHistory(5, 4)}
		repo := &fakeRepo{latestID: null.IntFrom(5)}
		store := newFakeStore()
		service := newTestSyncService(account, repo, store, 10)

		result, err := service.SyncPair(context.Background(), "btcusd")
		require.NoError(t, err)

		assert.Equal(t, int64(0), result.Inserted)
		assert.Equal(t, int64(5), result.Cursor)
		assert.Empty(t, repo.upserted)
	})

	t.Run("skips when another worker holds the lock", func(t *testing.T) {
		account := &fakeAccount{history: newHistory(1)}
		store := newFakeStore()
		store.locks[cursorKey] = "someone-else"
		service := newTestSyncService(account, &fakeRepo{}, store, 10)

		result, err := service.SyncPair(context.Background(), "btcusd")
		require.NoError(t, err)

		assert.True(t, result.Skipped)
		assert.Empty(t, account.requests)
		assert.Equal(t, "someone-else", store.locks[cursorKey])
	})

	t.Run("keeps the cursor when the exchange fails", func(t *testing.T) {
		account := &fakeAccount{err: errors.New("rate limited")}
		store := newFakeStore()
		store.cursors[cursorKey] = 3
		service := newTestSyncService(account, &fakeRepo{}, store, 10)

		_, err := service.SyncPair(context.Background(), "btcusd")
		require.Error(t, err)

		assert.Equal(t, int64(3), store.cursors[cursorKey])
		assert.Empty(t, store.locks)
	})

	t.Run("keeps the cursor when the insert fails", func(t *testing.T) {
		account := &fakeAccount{history: newHistory(4)}
		store := newFakeStore()
		store.cursors[cursorKey] = 3
		service := newTestSyncService(account, &fakeRepo{err: errors.New("db down")}, store, 10)

		_, err := service.SyncPair(context.Background(), "btcusd")
		require.Error(t, err)
		assert.Equal(t, int64(3), store.cursors[cursorKey])
	})

	t.Run("warns when paging stops at the max offset", func(t *testing.T) {
		hook := logtest.NewGlobal()
		t.Cleanup(func() { logrus.StandardLogger().ReplaceHooks(logrus.LevelHooks{}) })

		account := &fakeAccount{history: newHistory(10, 9, 8, 7, 6, 5, 4, 3, 2, 1)}
		repo := &fakeRepo{}
		store := newFakeStore()
		service := newTestSyncService(account, repo, store, 2)
		service.maxOffset = 4

		result, err := service.SyncPair(context.Background(), "btcusd")
		require.NoError(t, err)

		assert.True(t, result.Truncated)
		assert.Equal(t, 6, result.Fetched)
		require.Len(t, account.requests, 3)
		assert.Equal(t, 4, account.requests[2].Offset)
		assert.Equal(t, int64(10), store.cursors[cursorKey])

		var warned *logrus.Entry
		for _, entry := range hook.AllEntries() {
			if entry.Level == logrus.WarnLevel {
				warned = entry
			}
		}
		require.NotNil(t, warned)
		assert.Contains(t, warned.Message, "stopped at max offset")
		assert.Equal(t, "btcusd", warned.Data["pair"])
		assert.Equal(t, 4, warned.Data["max_offset"])
	})

	t.Run("full last page within the limit is not truncated", func(t *testing.T) {
		account := &fakeAccount{history: newHistory(4, 3, 2, 1)}
		service := newTestSyncService(account, &fakeRepo{}, newFakeStore(), 2)
		service.maxOffset = 4

		result, err := service.SyncPair(context.Background(), "btcusd")
		require.NoError(t, err)

		assert.False(t, result.Truncated)
		assert.Len(t, account.requests, 3)
	})

	t.Run("skips rows with an unreadable datetime", func(t *testing.T) {
		history := newHistory(2, 1)
		history[0].Datetime = "yesterday"
		account := &fakeAccount{history: history}
		repo := &fakeRepo{}
		store := newFakeStore()
		service := newTestSyncService(account, repo, store, 10)

		_, err := service.SyncPair(context.Background(), "btcusd")
		require.NoError(t, err)

		require.Len(t, repo.upserted, 1)
		assert.Equal(t, int64(1), repo.upserted[0].ID)
		assert.Equal(t, int64(1), store.cursors[cursorKey])
	})
}

func TestNewUserTransactionSyncService_Defaults(t *testing.T) {
	service := NewUserTransactionSyncService(entity.ExchangeBitstamp, &fakeAccount{}, &fakeRepo{}, newFakeStore(), config.UserTransactionSyncConfig{
		Pairs:    []string{" ETHUSD ", ""},
		PageSize: 5000,
	})

	assert.Equal(t, []string{"ethusd"}, service.pairs)
	assert.Equal(t, defaultSyncInterval, service.interval)
	assert.Equal(t, maxSyncPageSize, service.pageSize)
	assert.Equal(t, maxSyncOffset, service.maxOffset)
}

func TestProcessingLockKey(t *testing.T) {
	assert.Equal(t, fmt.Sprintf("%s:processing-lock", cursorKey), processingLockKey(cursorKey))
}
