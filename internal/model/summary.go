package model

// EventSummary is the read-only view returned by the summary endpoint.
// AvailableSeats and ReservationCount come from two separate reads and
// are not guaranteed to be mutually consistent.
type EventSummary struct {
	EventID          string `json:"eventId"`
	Name             string `json:"name"`
	TotalSeats       int    `json:"totalSeats"`
	AvailableSeats   int    `json:"availableSeats"`
	ReservationCount int    `json:"reservationCount"`
	Version          int    `json:"version"`
}
