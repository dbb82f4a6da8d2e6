package queue

import (
	"context"
	"errors"
	"fmt"

	"alarmbell-backend/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	RecordEventsExchange = "domain_events"
	AlarmNotifyQueue     = "alarm_notifications"
	RecordCreatedBinding = "record.created.#"
)

// ErrMalformed tells the consumer to drop a message instead of requeueing it.
var ErrMalformed = errors.New("malformed message")

// Channel is the subset of *amqp.Channel used by the consumer.
type Channel interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type Client struct {
	conn    *amqp.Connection
	channel Channel
	logger  *logger.Logger
}

func NewRabbitMQClient(url string, log *logger.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Record events are published to a topic exchange keyed by record.<kind>.<collection>
	err = channel.ExchangeDeclare(
		RecordEventsExchange, // name
		"topic",              // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		AlarmNotifyQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = channel.QueueBind(
		AlarmNotifyQueue,     // queue name
		RecordCreatedBinding, // routing key
		RecordEventsExchange, // exchange
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	log.Info("[RABBITMQ] Bound queue %s to %s (%s)", AlarmNotifyQueue, RecordEventsExchange, RecordCreatedBinding)

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  log,
	}, nil
}

// NewClientWithChannel wraps an already configured channel.
func NewClientWithChannel(channel Channel, log *logger.Logger) *Client {
	return &Client{channel: channel, logger: log}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// ConsumeRecordEvents hands every delivery body to handler until ctx is done
// or the broker closes the channel. Messages are acked after one attempt;
// only ErrMalformed leads to a reject.
func (c *Client) ConsumeRecordEvents(ctx context.Context, handler func(ctx context.Context, body []byte) error) error {
	msgs, err := c.channel.Consume(
		AlarmNotifyQueue, // queue
		"",               // consumer
		false,            // auto-ack (we'll manually ack after processing)
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,              // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("[RABBITMQ] Started consuming from queue: %s", AlarmNotifyQueue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}

			if err := handler(ctx, msg.Body); err != nil {
				if errors.Is(err, ErrMalformed) {
					c.logger.Error("[RABBITMQ] Dropping malformed message: %v", err)
					msg.Nack(false, false)
					continue
				}
				c.logger.Warn("[RABBITMQ] Handler error: %v", err)
			}

			msg.Ack(false)
		}
	}
}
