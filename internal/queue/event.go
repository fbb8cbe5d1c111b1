// Package queue defines the notification payloads exchanged over the
// message broker and the background consumer that records them.
package queue

import "time"

// Queue (RabbitMQ) and topic (Kafka) names.  The name doubles as the
// routing key on the default exchange.
const (
	ReservationConfirmedQueue = "reservation.confirmed"
	ReservationCancelledQueue = "reservation.cancelled"
)

// ReservationEvent is published after a booking or cancellation has been
// committed.  It carries the inventory state produced by the write so
// consumers can log or audit without querying the primary database.
type ReservationEvent struct {
	Type           string `json:"type"` // queue name of the notification
	ReservationID  string `json:"reservation_id"`
	EventID        string `json:"event_id"`
	PartnerID      string `json:"partner_id"`
	Seats          int    `json:"seats"`
	AvailableSeats int    `json:"available_seats"`
	Version        int    `json:"version"`
	OccurredAt     string `json:"occurred_at"`
}

// NewReservationEvent stamps a notification of the given type with the
// current UTC time.
func NewReservationEvent(typ, reservationID, eventID, partnerID string, seats, available, version int) ReservationEvent {
	return ReservationEvent{
		Type:           typ,
		ReservationID:  reservationID,
		EventID:        eventID,
		PartnerID:      partnerID,
		Seats:          seats,
		AvailableSeats: available,
		Version:        version,
		OccurredAt:     time.Now().UTC().Format(time.RFC3339),
	}
}
