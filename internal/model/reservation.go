package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.  The only
// legal transition is confirmed -> cancelled.
type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation records a partner's claim on seats of an event.  Rows are
// never deleted; cancellation only flips Status.
//
// Fields:
//  ID        – UUID generated by the service (reservations.reservation_id).
//  EventID   – owning event.
//  PartnerID – opaque caller identifier.
//  Seats     – number of seats held, fixed at creation.
//  Status    – confirmed or cancelled.
type Reservation struct {
	ID        string            // reservations.reservation_id
	EventID   string            // reservations.event_id
	PartnerID string            // reservations.partner_id
	Seats     int               // reservations.seats
	Status    ReservationStatus // reservations.status
	CreatedAt time.Time         // reservations.created_at
	UpdatedAt time.Time         // reservations.updated_at
}

// IsConfirmed reports whether the reservation still holds its seats.
func (r *Reservation) IsConfirmed() bool { return r.Status == ReservationConfirmed }
