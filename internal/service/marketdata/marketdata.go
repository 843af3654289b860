package marketdata

import (
	"context"
	"time"

	"github.com/krobus00/bitstamp-client/internal/constant"
	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/krobus00/bitstamp-client/internal/infrastructure"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

type EventPublisher interface {
	Publish(ctx context.Context, subject string, msgID string, data any) error
}

type MarketTickerRepository interface {
	Create(ctx context.Context, data *entity.MarketTicker) error
}

func ensureTickerStream(ctx context.Context, js nats.JetStreamContext) error {
	streamConfig := &nats.StreamConfig{
		Name:       constant.TickerStreamName,
		Subjects:   []string{constant.TickerStreamSubjectAll},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		MaxAge:     1 * time.Hour,
		Duplicates: 2 * time.Minute,
		Replicas:   1,
	}

	err := infrastructure.EnsureStream(js, streamConfig, nats.Context(ctx))
	if err != nil {
		logrus.Error(err)
		return err
	}

	logrus.Infof("stream %s is ready", constant.TickerStreamName)

	return nil
}
