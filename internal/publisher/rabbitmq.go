package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/ticketboss/internal/queue"
)

// RabbitPublisher publishes notifications to a durable queue named after
// the notification type, via the default exchange.  The connection is
// dialed lazily and re-dialed after the broker drops it.
type RabbitPublisher struct {
	url    string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewRabbitPublisher returns a publisher for the broker at url.  No
// connection is made until the first Publish.
func NewRabbitPublisher(url string, logger *zap.Logger) *RabbitPublisher {
	return &RabbitPublisher{url: url, logger: logger}
}

func (p *RabbitPublisher) connection() (*amqp.Connection, error) {
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	p.conn = conn
	return conn, nil
}

// Publish declares the target queue (idempotent, durable) and sends ev as
// a persistent JSON message.
func (p *RabbitPublisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := p.connection()
	if err != nil {
		p.logger.Warn("rabbitmq: connect failed", zap.Error(err))
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		ev.Type, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		p.logger.Warn("rabbitmq: queue declare failed", zap.String("queue", ev.Type), zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ReservationID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", ev.Type, false, false, pub); err != nil {
		p.logger.Warn("rabbitmq: publish failed", zap.String("queue", ev.Type), zap.Error(err))
		return err
	}
	return nil
}

// Close closes the broker connection if one is open.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}
