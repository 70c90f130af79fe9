// Package messaging is the AMQP transport adapter: it binds the journey
// event queue, consumes booking/cancellation events, drives the saga, and
// publishes the approved/rejected outcomes.
package messaging

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker owns the AMQP connection, channel, and topology: a durable topic
// exchange, a durable queue bound to it, and a prefetch limit that bounds
// how many deliveries (and therefore sagas) are in flight at once.
type Broker struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    amqp.Queue
	exchange string
}

// Connect dials RabbitMQ and declares the exchange/queue/binding topology.
func Connect(url, exchange, queueName, routingKey string, prefetch int) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("messaging.Connect: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("messaging.Connect: channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("messaging.Connect: declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("messaging.Connect: declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("messaging.Connect: bind queue: %w", err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("messaging.Connect: qos: %w", err)
	}

	return &Broker{conn: conn, channel: ch, queue: q, exchange: exchange}, nil
}

// Consume opens the delivery stream for the bound queue.
// Deliveries are manually acknowledged by the consumer loop.
func (b *Broker) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := b.channel.Consume(
		b.queue.Name,
		"",    // consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("messaging.Broker.Consume: %w", err)
	}
	return msgs, nil
}

// publish sends one JSON message to the exchange under routingKey.
func (b *Broker) publish(ctx context.Context, routingKey string, body []byte) error {
	return b.channel.PublishWithContext(
		ctx,
		b.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Close shuts the channel and connection down. Consume streams end when the
// channel closes, which is how the consumer loop learns to stop.
func (b *Broker) Close() error {
	if b.channel != nil {
		if err := b.channel.Close(); err != nil {
			return fmt.Errorf("messaging.Broker.Close: channel: %w", err)
		}
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			return fmt.Errorf("messaging.Broker.Close: connection: %w", err)
		}
	}
	return nil
}
