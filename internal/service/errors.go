package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// Outcome sentinels.  Every error returned by ReservationService wraps
// exactly one of these or is an unexpected failure.
var (
	// ErrNotFound: unknown event or reservation, or reservation already cancelled.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientCapacity: requested seats exceed current availability.
	ErrInsufficientCapacity = errors.New("not enough seats left")
	// ErrWriteConflict: the version read under lock was stale at write time.
	ErrWriteConflict = errors.New("conflict: event data was modified, please try again")
	// ErrServiceBusy: a connection or row lock could not be acquired in time.
	ErrServiceBusy = errors.New("server is too busy, please try again in a moment")
	// ErrValidation: malformed input that slipped past the request layer.
	ErrValidation = errors.New("invalid request")
	// ErrInvariantViolation: a write would leave available seats outside [0, total].
	ErrInvariantViolation = errors.New("inventory invariant violated")
)

// MySQL server error numbers that map onto protocol outcomes.
const (
	mysqlLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	mysqlDeadlock        = 1213 // ER_LOCK_DEADLOCK
)

// classify maps driver level failures onto the outcome sentinels while
// keeping the original error in the chain.  Errors it does not
// recognise are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %w", ErrServiceBusy, err)
		case mysqlDeadlock:
			return fmt.Errorf("%w: %w", ErrWriteConflict, err)
		}
	}
	return err
}

// Outcome returns a short label for err, used for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientCapacity):
		return "insufficient_capacity"
	case errors.Is(err, ErrWriteConflict):
		return "write_conflict"
	case errors.Is(err, ErrServiceBusy):
		return "busy"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
