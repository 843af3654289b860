package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krobus00/bitstamp-client/internal/config"
	"github.com/krobus00/bitstamp-client/internal/constant"
	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const defaultTickerPollInterval = 10 * time.Second

type TickerPollerService struct {
	exchangeName entity.ExchangeName
	exchange     entity.MarketDataExchange
	js           nats.JetStreamContext
	publisher    EventPublisher
	pairs        []string
	pollInterval time.Duration
	now          func() time.Time
	newEventID   func() string
}

func NewTickerPollerService(exchangeName entity.ExchangeName, exchange entity.MarketDataExchange, js nats.JetStreamContext, publisher EventPublisher, cfg config.MarketDataConfig) *TickerPollerService {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultTickerPollInterval
	}

	pairs := make([]string, 0, len(cfg.Pairs))
	for _, pair := range cfg.Pairs {
		pair = strings.ToLower(strings.TrimSpace(pair))
		if pair == "" {
			continue
		}
		pairs = append(pairs, pair)
	}

	return &TickerPollerService{
		exchangeName: exchangeName,
		exchange:     exchange,
		js:           js,
		publisher:    publisher,
		pairs:        pairs,
		pollInterval: pollInterval,
		now:          time.Now,
		newEventID:   uuid.NewString,
	}
}

func (s *TickerPollerService) JetstreamEventInit(ctx context.Context) error {
	return ensureTickerStream(ctx, s.js)
}

func (s *TickerPollerService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.PollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PollOnce(ctx)
		}
	}
}

// PollOnce fetches every configured pair once and returns how many ticker
// events were published. A failing pair is skipped until the next round.
func (s *TickerPollerService) PollOnce(ctx context.Context) int {
	published := 0

	for _, pair := range s.pairs {
		if ctx.Err() != nil {
			return published
		}

		logger := logrus.WithFields(logrus.Fields{
			"exchange": s.exchangeName,
			"pair":     pair,
		})

		ticker, err := s.exchange.Ticker(ctx, pair)
		if err != nil {
			logger.WithError(err).Error("failed to fetch ticker")
			continue
		}

		event := entity.MarketTickerEvent{
			ID:   s.newEventID(),
			Data: entity.NewMarketTicker(s.exchangeName, pair, *ticker, s.now()),
		}

		subject := constant.GetTickerStreamSubject(string(s.exchangeName), pair)
		err = s.publisher.Publish(ctx, subject, event.ID, event)
		if err != nil {
			logger.WithError(err).Error("failed to publish ticker event")
			continue
		}

		published++
	}

	return published
}
