package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Publisher sends outcome events back onto the bus. The routing key doubles
// as the event type.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// AMQPPublisher publishes JSON events through a Broker with a bounded
// randomized exponential backoff. Publish failures never undo the database
// outcome they report; after the retry budget is exhausted the error is
// returned for the caller to log.
type AMQPPublisher struct {
	broker      *Broker
	maxAttempts uint64
	log         *slog.Logger
}

func NewAMQPPublisher(broker *Broker, maxAttempts int, log *slog.Logger) *AMQPPublisher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &AMQPPublisher{broker: broker, maxAttempts: uint64(maxAttempts), log: log}
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("messaging.AMQPPublisher.Publish: marshal %s: %w", routingKey, err)
	}

	backoff := retry.NewExponential(200 * time.Millisecond)
	backoff = retry.WithJitter(100*time.Millisecond, backoff)
	backoff = retry.WithCappedDuration(2*time.Second, backoff)
	backoff = retry.WithMaxRetries(p.maxAttempts-1, backoff)

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.broker.publish(ctx, routingKey, body); err != nil {
			p.log.Warn("publish attempt failed",
				slog.String("routing_key", routingKey),
				slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("messaging.AMQPPublisher.Publish: %s: %w", routingKey, err)
	}
	return nil
}
