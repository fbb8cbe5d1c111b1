package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFormatAuditLine(t *testing.T) {
	ev := ReservationEvent{
		Type:           ReservationCancelledQueue,
		ReservationID:  "3f1c2a9e-8b7d-4e6f-a5b4-c3d2e1f0a9b8",
		EventID:        "node-meetup-2025",
		PartnerID:      "abc corp",
		Seats:          4,
		AvailableSeats: 500,
		Version:        2,
		OccurredAt:     "2025-03-01T12:00:00Z",
	}
	require.Equal(t,
		`[2025-03-01T12:00:00Z] Reservation cancelled | reservation_id=3f1c2a9e-8b7d-4e6f-a5b4-c3d2e1f0a9b8 | event_id=node-meetup-2025 | partner_id="abc corp" | seats=4 | available_seats=500 | version=2`+"\n",
		FormatAuditLine(ev))
}

func TestHandleMessageAppendsToAuditLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reservations.log")
	c := NewAuditConsumer("amqp://unused", path, zap.NewNop())

	for _, typ := range []string{ReservationConfirmedQueue, ReservationCancelledQueue} {
		body, err := json.Marshal(NewReservationEvent(typ, "r-1", "node-meetup-2025", "p", 2, 498, 1))
		require.NoError(t, err)
		require.NoError(t, c.handleMessage(body))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Reservation confirmed | reservation_id=r-1")
	require.Contains(t, lines[1], "Reservation cancelled | reservation_id=r-1")
}

func TestHandleMessageRejectsBadPayloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservations.log")
	c := NewAuditConsumer("amqp://unused", path, zap.NewNop())

	require.Error(t, c.handleMessage([]byte(`not json`)))
	require.Error(t, c.handleMessage([]byte(`{"type":"reservation.confirmed"}`)))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
