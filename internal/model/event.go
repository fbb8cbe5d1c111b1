package model

import "time"

// Event is the inventory record for a single offering.  The pair
// AvailableSeats/Version is owned by the events table and only changes
// through a version-guarded update.
//
// Fields:
//  ID             – primary key (events.event_id), immutable.
//  Name           – display name.
//  TotalSeats     – fixed capacity set when the event is seeded.
//  AvailableSeats – seats not held by a confirmed reservation.
//  Version        – incremented once per change of AvailableSeats.
type Event struct {
	ID             string    // events.event_id
	Name           string    // events.name
	TotalSeats     int       // events.total_seats
	AvailableSeats int       // events.available_seats
	Version        int       // events.version
	CreatedAt      time.Time // events.created_at
	UpdatedAt      time.Time // events.updated_at
}

// CanBook reports whether the requested number of seats fits into the
// remaining availability.
func (e *Event) CanBook(seats int) bool {
	return seats > 0 && seats <= e.AvailableSeats
}
