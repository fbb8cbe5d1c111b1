package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/ticketboss/internal/model"
)

// EventRepo is the inventory store.  It owns the authoritative
// available_seats/version pair of every event and only mutates it
// through ConditionalUpdateTx.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning several repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `event_id, name, total_seats, available_seats, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var ev model.Event
	err := row.Scan(&ev.ID, &ev.Name, &ev.TotalSeats, &ev.AvailableSeats, &ev.Version, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

// GetByID reads an event without locking.  It is used by the summary
// read path, which tolerates racing with concurrent bookings.
func (r *EventRepo) GetByID(ctx context.Context, eventID string) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE event_id = ?`
	return scanEvent(r.db.QueryRowContext(ctx, q, eventID))
}

// GetForUpdateTx reads an event inside tx and takes a row-level write
// lock on it.  Concurrent transactions on the same event block here
// until tx commits or rolls back, so they observe each other's writes.
func (r *EventRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, eventID string) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE event_id = ? FOR UPDATE`
	return scanEvent(tx.QueryRowContext(ctx, q, eventID))
}

// ConditionalUpdateTx sets available_seats to newAvailable and bumps the
// version, but only if the stored version still equals expectedVersion
// and newAvailable lies within [0, total_seats].  When the guard fails
// nothing is written and ErrVersionMismatch is returned.
func (r *EventRepo) ConditionalUpdateTx(ctx context.Context, tx *sql.Tx, eventID string, expectedVersion, newAvailable int) error {
	const q = `UPDATE events
               SET available_seats = ?, version = version + 1
               WHERE event_id = ? AND version = ? AND ? BETWEEN 0 AND total_seats`
	res, err := tx.ExecContext(ctx, q, newAvailable, eventID, expectedVersion, newAvailable)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionMismatch
	}
	return nil
}
