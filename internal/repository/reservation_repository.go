package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/ticketboss/internal/model"
)

// ReservationRepo is the reservation ledger.  Rows are inserted once with
// status confirmed and may later be flipped to cancelled; they are never
// deleted.  All timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `reservation_id, event_id, partner_id, seats, status, created_at, updated_at`

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var status string
	err := row.Scan(&res.ID, &res.EventID, &res.PartnerID, &res.Seats, &status, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	return &res, nil
}

// CreateTx inserts res within the scope of an existing transaction.  The
// caller supplies the ID; CreatedAt and UpdatedAt are populated here.
// The caller must commit or rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	now := time.Now().UTC().Truncate(time.Second)
	const q = `INSERT INTO reservations (reservation_id, event_id, partner_id, seats, status, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, res.ID, res.EventID, res.PartnerID, res.Seats, string(res.Status), now, now); err != nil {
		return err
	}
	res.CreatedAt = now
	res.UpdatedAt = now
	return nil
}

// GetByID returns a reservation regardless of its status.
func (r *ReservationRepo) GetByID(ctx context.Context, reservationID string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE reservation_id = ?`
	return scanReservation(r.db.QueryRowContext(ctx, q, reservationID))
}

// GetConfirmedForUpdateTx returns the reservation only while it is still
// confirmed, locking the row so that two cancellations of the same
// reservation serialize.  A cancelled or unknown reservation yields
// ErrReservationNotFound.
func (r *ReservationRepo) GetConfirmedForUpdateTx(ctx context.Context, tx *sql.Tx, reservationID string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
               WHERE reservation_id = ? AND status = 'confirmed' FOR UPDATE`
	return scanReservation(tx.QueryRowContext(ctx, q, reservationID))
}

// MarkCancelledTx flips a confirmed reservation to cancelled.  The status
// guard in the WHERE clause makes the transition one-way; when no
// confirmed row matches, ErrReservationNotFound is returned.
func (r *ReservationRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, reservationID string) error {
	const q = `UPDATE reservations SET status = 'cancelled', updated_at = ?
               WHERE reservation_id = ? AND status = 'confirmed'`
	res, err := tx.ExecContext(ctx, q, time.Now().UTC().Truncate(time.Second), reservationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// CountConfirmed returns the number of confirmed reservations for an
// event.  It does not lock and may race with concurrent bookings.
func (r *ReservationRepo) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	const q = `SELECT COUNT(*) FROM reservations WHERE event_id = ? AND status = 'confirmed'`
	var n int
	if err := r.db.QueryRowContext(ctx, q, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
