package messaging

import (
	"context"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeliverySource opens the delivery stream for the bound queue.
// *Broker implements it; tests feed a channel directly.
type DeliverySource interface {
	Consume() (<-chan amqp.Delivery, error)
}

// Consumer pulls deliveries off the queue and feeds them to the
// EventHandler. Each delivery is handled in its own goroutine; the broker's
// prefetch limit caps how many run at once.
//
// A delivery the handler settled or dropped is acknowledged. A delivery
// whose handler returned an unsettled error is nacked back onto the queue:
// the idempotent journey create and the settled-status check make the
// re-delivery safe.
type Consumer struct {
	source  DeliverySource
	handler *EventHandler
	log     *slog.Logger
	wg      sync.WaitGroup
}

func NewConsumer(source DeliverySource, handler *EventHandler, log *slog.Logger) *Consumer {
	return &Consumer{source: source, handler: handler, log: log}
}

// Start opens the delivery stream and runs the consume loop until ctx is
// canceled or the broker channel closes. It blocks; run it in a goroutine.
//
// Cancellation stops intake only. In-flight handlers keep a detached
// context and run to completion, so a shutdown signal can never abort a
// saga halfway through its steps and leak reserved capacity.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.source.Consume()
	if err != nil {
		return err
	}
	c.log.InfoContext(ctx, "consumer started")

	for {
		select {
		case <-ctx.Done():
			c.wg.Wait()
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				c.wg.Wait()
				return nil
			}
			c.wg.Add(1)
			go c.process(context.WithoutCancel(ctx), msg)
		}
	}
}

// process runs one delivery to completion and settles it with the broker.
func (c *Consumer) process(ctx context.Context, msg amqp.Delivery) {
	defer c.wg.Done()

	if err := c.handler.Handle(ctx, msg.Body); err != nil {
		c.log.ErrorContext(ctx, "event handling failed, requeueing",
			"routing_key", msg.RoutingKey, "error", err)
		if err := msg.Nack(false, true); err != nil {
			c.log.ErrorContext(ctx, "nack failed", "error", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		c.log.ErrorContext(ctx, "ack failed", "error", err)
	}
}

// Wait blocks until all in-flight handlers finish.
func (c *Consumer) Wait() {
	c.wg.Wait()
}
