package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/bitstamp-client/internal/config"
	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	subject string
	msgID   string
	data    any
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []publishedEvent
}

func (p *fakePublisher) Publish(ctx context.Context, subject string, msgID string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, publishedEvent{subject: subject, msgID: msgID, data: data})
	return nil
}

type fakeMarketData struct {
	tickers map[string]*entity.Ticker
	errs    map[string]error
}

func (f *fakeMarketData) Ticker(ctx context.Context, pair string) (*entity.Ticker, error) {
	if err := f.errs[pair]; err != nil {
		return nil, err
	}
	return f.tickers[pair], nil
}

func (f *fakeMarketData) OrderBook(ctx context.Context, pair string) (*entity.OrderBook, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeMarketData) Transactions(ctx context.Context, pair string, interval entity.TransactionInterval) ([]entity.Transaction, error) {
	return nil, errors.New("not implemented")
}

type fakeTickerRepo struct {
	err     error
	created []entity.MarketTicker
}

func (r *fakeTickerRepo) Create(ctx context.Context, data *entity.MarketTicker) error {
	if r.err != nil {
		return r.err
	}
	data.ID = "row-1"
	r.created = append(r.created, *data)
	return nil
}

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestTickerPollerService_PollOnce(t *testing.T) {
	exchange := &fakeMarketData{
		tickers: map[string]*entity.Ticker{
			"btcusd": {Last: decimal.RequireFromString("64000.5"), Timestamp: 1714557600},
		},
		errs: map[string]error{
			"ethusd": errors.New("upstream down"),
		},
	}
	publisher := &fakePublisher{}

	service := NewTickerPollerService(entity.ExchangeBitstamp, exchange, nil, publisher, config.MarketDataConfig{
		Pairs: []string{" BTCUSD ", "ethusd", ""},
	})
	service.now = func() time.Time { return testNow }
	service.newEventID = func() string { return "evt-1" }

	published := service.PollOnce(context.Background())

	assert.Equal(t, 1, published)
	assert.Equal(t, defaultTickerPollInterval, service.pollInterval)
	require.Len(t, publisher.events, 1)

	got := publisher.events[0]
	assert.Equal(t, "ticker.bitstamp.btcusd", got.subject)
	assert.Equal(t, "evt-1", got.msgID)

	event, ok := got.data.(entity.MarketTickerEvent)
	require.True(t, ok)
	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, "bitstamp", event.Data.Exchange)
	assert.Equal(t, "btcusd", event.Data.Pair)
	assert.True(t, decimal.RequireFromString("64000.5").Equal(event.Data.Last))
	assert.Equal(t, time.Unix(1714557600, 0).UTC(), event.Data.TickedAt)
	assert.Equal(t, testNow, event.Data.ReceivedAt)
}

func TestTickerPollerService_PollOnceStopsOnCanceledContext(t *testing.T) {
	publisher := &fakePublisher{}
	service := NewTickerPollerService(entity.ExchangeBitstamp, &fakeMarketData{}, nil, publisher, config.MarketDataConfig{
		Pairs: []string{"btcusd"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0, service.PollOnce(ctx))
	assert.Empty(t, publisher.events)
}

func TestTickerWorkerService_HandleTickerEvent(t *testing.T) {
	newPayload := func(t *testing.T, retry int) []byte {
		t.Helper()
		payload, err := json.Marshal(entity.MarketTickerEvent{
			ID:         "evt-1",
			RetryCount: retry,
			Data: entity.MarketTicker{
				Exchange: "bitstamp",
				Pair:     "btcusd",
				Last:     decimal.RequireFromString("64000.5"),
				TickedAt: testNow,
			},
		})
		require.NoError(t, err)
		return payload
	}

	t.Run("inserts the ticker", func(t *testing.T) {
		repo := &fakeTickerRepo{}
		publisher := &fakePublisher{}
		worker := NewTickerWorkerService(nil, publisher, repo, nil, 3)
		worker.now = func() time.Time { return testNow }

		err := worker.HandleTickerEvent(context.Background(), newPayload(t, 0))
		require.NoError(t, err)

		require.Len(t, repo.created, 1)
		assert.Equal(t, "btcusd", repo.created[0].Pair)
		assert.Equal(t, testNow, repo.created[0].CreatedAt)
		assert.True(t, decimal.RequireFromString("64000.5").Equal(repo.created[0].Last))
		assert.Empty(t, publisher.events)
	})

	t.Run("republishes failed inserts", func(t *testing.T) {
		repo := &fakeTickerRepo{err: errors.New("db down")}
		publisher := &fakePublisher{}
		worker := NewTickerWorkerService(nil, publisher, repo, nil, 3)

		err := worker.HandleTickerEvent(context.Background(), newPayload(t, 0))
		require.Error(t, err)

		require.Len(t, publisher.events, 1)
		assert.Equal(t, "ticker.bitstamp.btcusd", publisher.events[0].subject)
		assert.Equal(t, "evt-1-1", publisher.events[0].msgID)

		event, ok := publisher.events[0].data.(entity.MarketTickerEvent)
		require.True(t, ok)
		assert.Equal(t, 1, event.RetryCount)
	})

	t.Run("drops the event after max retries", func(t *testing.T) {
		repo := &fakeTickerRepo{err: errors.New("db down")}
		publisher := &fakePublisher{}
		worker := NewTickerWorkerService(nil, publisher, repo, nil, 3)

		err := worker.HandleTickerEvent(context.Background(), newPayload(t, 2))
		require.Error(t, err)
		assert.Empty(t, publisher.events)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		repo := &fakeTickerRepo{}
		publisher := &fakePublisher{}
		worker := NewTickerWorkerService(nil, publisher, repo, nil, 3)

		err := worker.HandleTickerEvent(context.Background(), []byte("{"))
		require.Error(t, err)
		assert.Empty(t, repo.created)
		assert.Empty(t, publisher.events)
	})

	t.Run("reads the handler timeout", func(t *testing.T) {
		worker := NewTickerWorkerService(nil, &fakePublisher{}, &fakeTickerRepo{}, map[string]time.Duration{"insert_ticker": 3 * time.Second}, 3)
		assert.Equal(t, 3*time.Second, worker.timeout)
	})
}
