package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange dispatch events are published to.
const DefaultExchange = "crm.events"

// Message is one event ready for the broker. Body is already JSON.
type Message struct {
	ID        string
	Topic     string
	Body      []byte
	CreatedAt time.Time
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// AMQPPublisher publishes to a RabbitMQ topic exchange using the message
// topic as routing key.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

// NewAMQPPublisher dials the broker and declares a durable topic exchange.
// PRE: url is an amqp:// URL
// POST: Returns a connected publisher or an error; nothing is left open on error
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish sends msg as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("amqp connection closed")
	}
	return p.channel.PublishWithContext(ctx, p.exchange, msg.Topic, false, false, publishing(msg))
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func publishing(msg Message) amqp091.Publishing {
	return amqp091.Publishing{
		ContentType:  "application/json",
		MessageId:    msg.ID,
		Timestamp:    msg.CreatedAt,
		Type:         msg.Topic,
		Body:         msg.Body,
		DeliveryMode: amqp091.Persistent,
	}
}

// LogPublisher logs events instead of publishing them. Used when no broker
// is configured so the outbox still drains.
type LogPublisher struct{}

// Publish logs the event.
func (LogPublisher) Publish(_ context.Context, msg Message) error {
	slog.Info("event_published", "publisher", "log", "topic", msg.Topic, "id", msg.ID, "bytes", len(msg.Body))
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error { return nil }
