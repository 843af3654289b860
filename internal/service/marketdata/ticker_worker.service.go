package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/bitstamp-client/internal/constant"
	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/krobus00/bitstamp-client/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const insertTickerTimeoutKey = "insert_ticker"

type TickerWorkerService struct {
	js         nats.JetStreamContext
	publisher  EventPublisher
	tickerRepo MarketTickerRepository
	timeout    time.Duration
	maxRetries int
	now        func() time.Time
}

func NewTickerWorkerService(js nats.JetStreamContext, publisher EventPublisher, tickerRepo MarketTickerRepository, timeoutHandler map[string]time.Duration, maxRetries int) *TickerWorkerService {
	return &TickerWorkerService{
		js:         js,
		publisher:  publisher,
		tickerRepo: tickerRepo,
		timeout:    timeoutHandler[insertTickerTimeoutKey],
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

func (s *TickerWorkerService) JetstreamEventSubscribe(ctx context.Context) error {
	err := ensureTickerStream(ctx, s.js)
	if err != nil {
		return err
	}

	_, err = s.js.QueueSubscribe(
		constant.TickerStreamSubjectAll,
		constant.TickerInsertQueueGroup,
		func(msg *nats.Msg) {
			err := util.ProcessWithTimeout(s.timeout, msg, s.handleTickerMsg)
			if err != nil {
				logrus.Errorf("error processing message: %v", err)
				// retries go through republishing, never through redelivery
				if termErr := msg.Term(); termErr != nil {
					logrus.Errorf("failed to terminate message: %v", termErr)
				}
				return
			}

			err = msg.Ack()
			if err != nil {
				logrus.Errorf("failed to acknowledge message: %v", err)
				return
			}
		},
		nats.Context(ctx),
		nats.ManualAck(),
		nats.DeliverNew(),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", constant.TickerStreamSubjectAll, err)
	}

	return nil
}

func (s *TickerWorkerService) handleTickerMsg(ctx context.Context, msg *nats.Msg) error {
	return s.HandleTickerEvent(ctx, msg.Data)
}

// HandleTickerEvent stores one ticker event. When the insert fails the event is
// published again with a bumped retry count until maxRetries is reached.
func (s *TickerWorkerService) HandleTickerEvent(ctx context.Context, data []byte) (err error) {
	logger := logrus.WithField("req", string(data))

	var req entity.MarketTickerEvent
	err = json.Unmarshal(data, &req)
	if err != nil {
		logger.Error(err)
		return err
	}

	defer func() {
		if err == nil {
			return
		}

		req.RetryCount++
		if req.RetryCount >= s.maxRetries {
			logger.WithField("retry", req.RetryCount).Warn("dropping ticker event after max retries")
			return
		}

		subject := constant.GetTickerStreamSubject(req.Data.Exchange, req.Data.Pair)
		msgID := fmt.Sprintf("%s-%d", req.ID, req.RetryCount)
		if pubErr := s.publisher.Publish(context.WithoutCancel(ctx), subject, msgID, req); pubErr != nil {
			logger.Error(pubErr)
		}
	}()

	if req.Data.CreatedAt.IsZero() {
		req.Data.CreatedAt = s.now().UTC()
	}

	err = s.tickerRepo.Create(ctx, &req.Data)
	if err != nil {
		logger.Error(err)
		return err
	}

	return nil
}
