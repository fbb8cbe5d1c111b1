// Package publisher delivers reservation notifications to a message
// broker once the corresponding transaction has committed.  Publishing
// is best effort: errors are logged and returned, and callers never
// undo a committed reservation because a notification failed.
package publisher

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/ticketboss/internal/config"
	"github.com/iliyamo/ticketboss/internal/queue"
)

// Publisher sends a reservation notification to its broker.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
	Close() error
}

// New returns the publisher selected by cfg.Broker: "rabbitmq", "kafka"
// or "none".
func New(cfg config.BrokerConfig, logger *zap.Logger) (Publisher, error) {
	switch strings.ToLower(cfg.Broker) {
	case "rabbitmq", "amqp", "":
		return NewRabbitPublisher(cfg.AMQPURL, logger), nil
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, logger), nil
	case "none", "noop":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown broker %q", cfg.Broker)
	}
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Publish(context.Context, queue.ReservationEvent) error { return nil }
func (Nop) Close() error                                         { return nil }
