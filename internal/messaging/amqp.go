package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// AmqpClient owns one connection and channel bound to a durable direct exchange and queue.
type AmqpClient struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
}

func NewAmqpClient(url, exchange, queue string) (*AmqpClient, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &AmqpClient{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		queue:    queue,
	}
	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return client, nil
}

func (c *AmqpClient) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// routing key is the queue name
	if err := c.channel.QueueBind(c.queue, c.queue, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *AmqpClient) Publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := c.channel.PublishWithContext(ctx, c.exchange, c.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	log.Tracef("published message to %s/%s", c.exchange, c.queue)
	return nil
}

// Consume delivers messages to handler until ctx is done. Messages that fail with a
// PermanentError are dropped, other failures are requeued.
func (c *AmqpClient) Consume(ctx context.Context, handler func(ctx context.Context, body []byte) error) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	log.Infof("consuming messages from %s", c.queue)

	for {
		select {
		case <-ctx.Done():
			log.Infof("stopping consumption of %s: %v", c.queue, ctx.Err())
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			if err := handler(ctx, delivery.Body); err != nil {
				var permanentErr PermanentError
				permanent := errors.As(err, &permanentErr)
				log.Errorf("failed to handle message from %s (requeue=%t): %v", c.queue, !permanent, err)
				if nackErr := delivery.Nack(false, !permanent); nackErr != nil {
					log.Errorf("failed to nack message: %v", nackErr)
				}
				continue
			}
			if ackErr := delivery.Ack(false); ackErr != nil {
				log.Errorf("failed to ack message: %v", ackErr)
			}
		}
	}
}

func (c *AmqpClient) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// PermanentError marks a message that can never be processed, e.g. a malformed body.
type PermanentError struct {
	Err error
}

func (e PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e PermanentError) Unwrap() error {
	return e.Err
}
