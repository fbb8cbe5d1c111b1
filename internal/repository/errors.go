// Package repository defines error types that are reused across the
// inventory and ledger repositories.  These sentinel values allow the
// service layer to distinguish between a missing row and a stale
// version without inspecting driver errors.
package repository

import "errors"

// ErrEventNotFound is returned when no events row matches the given
// event ID.
var ErrEventNotFound = errors.New("event not found")

// ErrReservationNotFound is returned when no reservation matches the
// given ID, or when a status-filtered lookup finds the reservation in a
// different status (for example already cancelled).
var ErrReservationNotFound = errors.New("reservation not found")

// ErrVersionMismatch is returned by ConditionalUpdateTx when the stored
// version no longer equals the version the caller read.  No write has
// been performed.
var ErrVersionMismatch = errors.New("event version mismatch")
