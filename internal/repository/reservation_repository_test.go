package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticketboss/internal/model"
)

var reservationCols = []string{"reservation_id", "event_id", "partner_id", "seats", "status", "created_at", "updated_at"}

const resID = "9b2f0f5e-3c1a-4f7e-9a55-1f0d2c3b4a5e"

func TestReservationRepo_CreateTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WithArgs(resID, "e1", "partner-a", 3, "confirmed", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	res := &model.Reservation{ID: resID, EventID: "e1", PartnerID: "partner-a", Seats: 3, Status: model.ReservationConfirmed}
	require.NoError(t, repo.CreateTx(context.Background(), tx, res))
	require.NoError(t, tx.Commit())
	require.False(t, res.CreatedAt.IsZero())
	require.Equal(t, res.CreatedAt, res.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepo_GetConfirmedForUpdateTx(t *testing.T) {
	const q = "FROM reservations WHERE reservation_id = ? AND status = 'confirmed' FOR UPDATE"
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewReservationRepo(db)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(q)).
			WithArgs(resID).
			WillReturnRows(sqlmock.NewRows(reservationCols).AddRow(resID, "e1", "partner-a", 4, "confirmed", now, now))
		mock.ExpectRollback()

		tx, err := db.Begin()
		require.NoError(t, err)
		res, err := repo.GetConfirmedForUpdateTx(context.Background(), tx, resID)
		require.NoError(t, err)
		require.True(t, res.IsConfirmed())
		require.Equal(t, 4, res.Seats)
		require.NoError(t, tx.Rollback())
	})

	t.Run("cancelled or unknown", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewReservationRepo(db)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs(resID).WillReturnRows(sqlmock.NewRows(reservationCols))
		mock.ExpectRollback()

		tx, err := db.Begin()
		require.NoError(t, err)
		_, err = repo.GetConfirmedForUpdateTx(context.Background(), tx, resID)
		require.ErrorIs(t, err, ErrReservationNotFound)
		require.NoError(t, tx.Rollback())
	})
}

func TestReservationRepo_MarkCancelledTx(t *testing.T) {
	const q = "UPDATE reservations SET status = 'cancelled', updated_at = ? WHERE reservation_id = ? AND status = 'confirmed'"

	for name, tc := range map[string]struct {
		affected int64
		wantErr  error
	}{
		"flips confirmed":        {affected: 1},
		"rejects already closed": {affected: 0, wantErr: ErrReservationNotFound},
	} {
		t.Run(name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewReservationRepo(db)
			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(q)).
				WithArgs(sqlmock.AnyArg(), resID).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))
			mock.ExpectRollback()

			tx, err := db.Begin()
			require.NoError(t, err)
			err = repo.MarkCancelledTx(context.Background(), tx, resID)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, tx.Rollback())
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReservationRepo_CountConfirmed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reservations WHERE event_id = ? AND status = 'confirmed'")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.CountConfirmed(context.Background(), "e1")
	require.NoError(t, err)
	require.Equal(t, 7, n)
}

func TestReservationRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE reservation_id = ?")).
		WithArgs(resID).
		WillReturnRows(sqlmock.NewRows(reservationCols).AddRow(resID, "e1", "partner-a", 2, "cancelled", now, now))

	res, err := repo.GetByID(context.Background(), resID)
	require.NoError(t, err)
	require.Equal(t, model.ReservationCancelled, res.Status)
	require.False(t, res.IsConfirmed())
}
