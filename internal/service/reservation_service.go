// Package service implements the seat inventory protocols.  Booking and
// cancellation each run as one SQL transaction that locks the event row,
// validates against the locked snapshot and then applies a
// version-guarded update together with the matching ledger write, so
// either both effects commit or neither does.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/ticketboss/internal/logger"
	"github.com/iliyamo/ticketboss/internal/model"
	"github.com/iliyamo/ticketboss/internal/publisher"
	"github.com/iliyamo/ticketboss/internal/queue"
	"github.com/iliyamo/ticketboss/internal/repository"
)

// Bounds on the number of seats a single booking may claim.
const (
	MinSeatsPerBooking = 1
	MaxSeatsPerBooking = 10
)

const defaultAcquireTimeout = 30 * time.Second

func defaultNewID() string { return uuid.NewString() }

// BookRequest is the input of Book.
type BookRequest struct {
	EventID   string
	PartnerID string
	Seats     int
}

// Options tunes a ReservationService.
type Options struct {
	// AcquireTimeout bounds the wait for a pooled connection.  Exceeding
	// it yields ErrServiceBusy.
	AcquireTimeout time.Duration
}

// ReservationService orchestrates the booking, cancellation and summary
// operations over the inventory store and the reservation ledger.
type ReservationService struct {
	db             *sql.DB
	events         *repository.EventRepo
	reservations   *repository.ReservationRepo
	publisher      publisher.Publisher
	logger         *zap.Logger
	metrics        *Metrics
	tracer         trace.Tracer
	acquireTimeout time.Duration
	newID          func() string
}

// NewReservationService wires the service.  db, eventRepo and resRepo
// must be non-nil; a nil publisher discards notifications and nil
// metrics record nothing.
func NewReservationService(db *sql.DB, eventRepo *repository.EventRepo, resRepo *repository.ReservationRepo, pub publisher.Publisher, log *zap.Logger, metrics *Metrics, opts Options) *ReservationService {
	if db == nil || eventRepo == nil || resRepo == nil {
		panic("nil dependency passed to NewReservationService")
	}
	if pub == nil {
		pub = publisher.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	acquire := opts.AcquireTimeout
	if acquire <= 0 {
		acquire = defaultAcquireTimeout
	}
	return &ReservationService{
		db:             db,
		events:         eventRepo,
		reservations:   resRepo,
		publisher:      pub,
		logger:         log,
		metrics:        metrics,
		tracer:         otel.Tracer("github.com/iliyamo/ticketboss/internal/service"),
		acquireTimeout: acquire,
		newID:          defaultNewID,
	}
}

// withTx runs fn inside a transaction on a dedicated connection.  The
// connection wait is bounded by acquireTimeout; the transaction itself
// lives as long as ctx.  fn's error aborts the transaction.
func (s *ReservationService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	conn, err := s.db.Conn(acquireCtx)
	cancel()
	if err != nil {
		return busyIfTimedOut(ctx, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(fmt.Errorf("begin transaction: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	committed = true
	return nil
}

// busyIfTimedOut reports a deadline that fired while the caller's own
// context was still live as ErrServiceBusy.
func busyIfTimedOut(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %w", ErrServiceBusy, err)
	}
	return classify(err)
}

func (s *ReservationService) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "reservation."+op, trace.WithAttributes(attrs...))
}

func (s *ReservationService) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	s.metrics.observe(op, start, err)
	outcome := Outcome(err)
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		logger.Debug(ctx, s.logger, "reservation operation failed",
			zap.String("operation", op), zap.String("outcome", outcome), zap.Error(err))
	}
	span.End()
}

// Book claims req.Seats seats of req.EventID for req.PartnerID.  On
// success the returned reservation is confirmed and the event's
// available seats have been decremented in the same commit.
func (s *ReservationService) Book(ctx context.Context, req BookRequest) (res *model.Reservation, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "book",
		attribute.String("event.id", req.EventID),
		attribute.String("partner.id", req.PartnerID),
		attribute.Int("seats", req.Seats),
	)
	defer func() { s.finish(ctx, span, "book", start, err) }()

	if strings.TrimSpace(req.PartnerID) == "" {
		return nil, fmt.Errorf("%w: partnerId is required", ErrValidation)
	}
	if req.Seats < MinSeatsPerBooking || req.Seats > MaxSeatsPerBooking {
		return nil, fmt.Errorf("%w: seats must be between %d and %d", ErrValidation, MinSeatsPerBooking, MaxSeatsPerBooking)
	}

	var after model.Event
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		ev, err := s.events.GetForUpdateTx(ctx, tx, req.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrEventNotFound) {
				return fmt.Errorf("%w: event %s", ErrNotFound, req.EventID)
			}
			return classify(fmt.Errorf("lock event: %w", err))
		}
		if !ev.CanBook(req.Seats) {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientCapacity, req.Seats, ev.AvailableSeats)
		}

		newAvailable := ev.AvailableSeats - req.Seats
		if err := s.events.ConditionalUpdateTx(ctx, tx, ev.ID, ev.Version, newAvailable); err != nil {
			if errors.Is(err, repository.ErrVersionMismatch) {
				return fmt.Errorf("%w: event %s at version %d", ErrWriteConflict, ev.ID, ev.Version)
			}
			return classify(fmt.Errorf("update inventory: %w", err))
		}

		r := &model.Reservation{
			ID:        s.newID(),
			EventID:   ev.ID,
			PartnerID: req.PartnerID,
			Seats:     req.Seats,
			Status:    model.ReservationConfirmed,
		}
		if err := s.reservations.CreateTx(ctx, tx, r); err != nil {
			return classify(fmt.Errorf("create reservation: %w", err))
		}

		after = *ev
		after.AvailableSeats = newAvailable
		after.Version = ev.Version + 1
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, s.logger, "reservation confirmed",
		zap.String("reservation_id", res.ID),
		zap.String("event_id", res.EventID),
		zap.String("partner_id", res.PartnerID),
		zap.Int("seats", res.Seats),
		zap.Int("available_seats", after.AvailableSeats),
		zap.Int("version", after.Version),
	)
	s.notify(ctx, queue.NewReservationEvent(queue.ReservationConfirmedQueue,
		res.ID, res.EventID, res.PartnerID, res.Seats, after.AvailableSeats, after.Version))
	return res, nil
}

// Cancel returns the seats of a confirmed reservation to its event and
// marks the reservation cancelled, atomically.  Unknown and already
// cancelled reservations yield ErrNotFound, so seats are credited at
// most once.
func (s *ReservationService) Cancel(ctx context.Context, reservationID string) (err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "cancel", attribute.String("reservation.id", reservationID))
	defer func() { s.finish(ctx, span, "cancel", start, err) }()

	var (
		res   *model.Reservation
		after model.Event
	)
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		r, err := s.reservations.GetConfirmedForUpdateTx(ctx, tx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrReservationNotFound) {
				return fmt.Errorf("%w: reservation %s not found or already cancelled", ErrNotFound, reservationID)
			}
			return classify(fmt.Errorf("load reservation: %w", err))
		}

		ev, err := s.events.GetForUpdateTx(ctx, tx, r.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrEventNotFound) {
				return fmt.Errorf("%w: reservation %s references missing event %s", ErrInvariantViolation, r.ID, r.EventID)
			}
			return classify(fmt.Errorf("lock event: %w", err))
		}

		newAvailable := ev.AvailableSeats + r.Seats
		if newAvailable > ev.TotalSeats {
			return fmt.Errorf("%w: crediting %d seats to event %s would give %d of %d",
				ErrInvariantViolation, r.Seats, ev.ID, newAvailable, ev.TotalSeats)
		}
		if err := s.events.ConditionalUpdateTx(ctx, tx, ev.ID, ev.Version, newAvailable); err != nil {
			if errors.Is(err, repository.ErrVersionMismatch) {
				return fmt.Errorf("%w: event %s at version %d", ErrWriteConflict, ev.ID, ev.Version)
			}
			return classify(fmt.Errorf("update inventory: %w", err))
		}

		if err := s.reservations.MarkCancelledTx(ctx, tx, r.ID); err != nil {
			if errors.Is(err, repository.ErrReservationNotFound) {
				return fmt.Errorf("%w: reservation %s already cancelled", ErrNotFound, r.ID)
			}
			return classify(fmt.Errorf("cancel reservation: %w", err))
		}

		after = *ev
		after.AvailableSeats = newAvailable
		after.Version = ev.Version + 1
		r.Status = model.ReservationCancelled
		res = r
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, s.logger, "reservation cancelled",
		zap.String("reservation_id", res.ID),
		zap.String("event_id", res.EventID),
		zap.Int("seats", res.Seats),
		zap.Int("available_seats", after.AvailableSeats),
		zap.Int("version", after.Version),
	)
	s.notify(ctx, queue.NewReservationEvent(queue.ReservationCancelledQueue,
		res.ID, res.EventID, res.PartnerID, res.Seats, after.AvailableSeats, after.Version))
	return nil
}

// Summary reads the event and its confirmed reservation count without
// locking.  The two values come from separate reads.
func (s *ReservationService) Summary(ctx context.Context, eventID string) (sum *model.EventSummary, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "summary", attribute.String("event.id", eventID))
	defer func() { s.finish(ctx, span, "summary", start, err) }()

	// The summary holds no locks, so the acquire timeout bounds the whole read.
	readCtx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	ev, err := s.events.GetByID(readCtx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
		}
		return nil, busyIfTimedOut(ctx, fmt.Errorf("read event: %w", err))
	}
	count, err := s.reservations.CountConfirmed(readCtx, eventID)
	if err != nil {
		return nil, busyIfTimedOut(ctx, fmt.Errorf("count reservations: %w", err))
	}
	return &model.EventSummary{
		EventID:          ev.ID,
		Name:             ev.Name,
		TotalSeats:       ev.TotalSeats,
		AvailableSeats:   ev.AvailableSeats,
		ReservationCount: count,
		Version:          ev.Version,
	}, nil
}

// GetReservation returns a reservation in any status.
func (s *ReservationService) GetReservation(ctx context.Context, reservationID string) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, fmt.Errorf("%w: reservation %s", ErrNotFound, reservationID)
		}
		return nil, fmt.Errorf("read reservation: %w", err)
	}
	return res, nil
}

// notify publishes ev after commit.  The request context may already be
// cancelled by then, so delivery gets its own deadline.
func (s *ReservationService) notify(ctx context.Context, ev queue.ReservationEvent) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, ev); err != nil {
		logger.Warn(ctx, s.logger, "notification not delivered",
			zap.String("type", ev.Type),
			zap.String("reservation_id", ev.ReservationID),
			zap.Error(err),
		)
	}
}
