package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/iliyamo/ticketboss/internal/queue"
)

// KafkaPublisher writes notifications to a topic named after the
// notification type.  Messages are keyed by event ID so that all
// notifications of one event land on the same partition in commit order.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher returns a publisher writing to brokers.
func NewKafkaPublisher(brokers []string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

// Publish writes ev as JSON to the topic ev.Type.
func (p *KafkaPublisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	msg := kafka.Message{
		Topic: ev.Type,
		Key:   []byte(ev.EventID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "reservation_id", Value: []byte(ev.ReservationID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("kafka: publish failed", zap.String("topic", ev.Type), zap.Error(err))
		return err
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error { return p.writer.Close() }
