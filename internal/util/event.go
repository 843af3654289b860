package util

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

func ProcessWithTimeout(timeout time.Duration, msg *nats.Msg, callback func(ctx context.Context, msg *nats.Msg) error) error {
	if timeout <= 0 {
		return callback(context.Background(), msg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- callback(ctx, msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("processing timeout for subject %s", msg.Subject)
	case err := <-done:
		return err
	}
}

// PublishEvent publishes data as JSON. A non-empty msgID lets JetStream drop
// duplicates inside the stream's dedup window.
func PublishEvent(ctx context.Context, js nats.JetStreamContext, subject string, msgID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	opts := []nats.PubOpt{nats.Context(ctx)}
	if msgID != "" {
		opts = append(opts, nats.MsgId(msgID))
	}

	_, err = js.Publish(subject, payload, opts...)
	if err != nil {
		return err
	}

	return nil
}

// JetstreamPublisher adapts PublishEvent to a small interface services can fake.
type JetstreamPublisher struct {
	js nats.JetStreamContext
}

func NewJetstreamPublisher(js nats.JetStreamContext) *JetstreamPublisher {
	return &JetstreamPublisher{js: js}
}

func (p *JetstreamPublisher) Publish(ctx context.Context, subject string, msgID string, data any) error {
	return PublishEvent(ctx, p.js, subject, msgID, data)
}
