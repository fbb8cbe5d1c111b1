package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditConsumer listens to the reservation.confirmed and
// reservation.cancelled queues and appends one line per notification to
// an audit log file.
type AuditConsumer struct {
	url     string
	logPath string
	logger  *zap.Logger
}

// NewAuditConsumer returns a consumer for the broker at url writing to
// logPath.
func NewAuditConsumer(url, logPath string, logger *zap.Logger) *AuditConsumer {
	return &AuditConsumer{url: url, logPath: logPath, logger: logger}
}

// Run connects to RabbitMQ, declares both queues (durable) and consumes
// until ctx is cancelled.  Lost connections are re-dialed with
// exponential backoff capped at 30s.  Messages that cannot be processed
// are rejected without requeue so a bad payload cannot loop.
func (a *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(a.url)
		if err != nil {
			a.logger.Warn("audit-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = a.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.logger.Warn("audit-consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (a *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		a.logger.Warn("audit-consumer: set QoS failed", zap.Error(err))
	}

	var streams []<-chan amqp.Delivery
	for _, q := range []string{ReservationConfirmedQueue, ReservationCancelledQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		streams = append(streams, msgs)
	}

	confirmed, cancelled := streams[0], streams[1]
	for {
		var d amqp.Delivery
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-confirmed:
		case d, ok = <-cancelled:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := a.handleMessage(d.Body); err != nil {
			a.logger.Error("audit-consumer: handle message failed", zap.String("queue", d.RoutingKey), zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func (a *AuditConsumer) handleMessage(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ReservationID == "" || ev.Type == "" {
		return errors.New("notification without type or reservation_id")
	}
	if err := os.MkdirAll(filepath.Dir(a.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// FormatAuditLine renders ev as a single newline-terminated line.
func FormatAuditLine(ev ReservationEvent) string {
	action := "Reservation confirmed"
	if ev.Type == ReservationCancelledQueue {
		action = "Reservation cancelled"
	}
	return fmt.Sprintf("[%s] %s | reservation_id=%s | event_id=%s | partner_id=%q | seats=%d | available_seats=%d | version=%d\n",
		ev.OccurredAt, action, ev.ReservationID, ev.EventID, ev.PartnerID, ev.Seats, ev.AvailableSeats, ev.Version)
}
