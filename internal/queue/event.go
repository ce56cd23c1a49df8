// Package queue defines the reservation event payload exchanged over
// RabbitMQ and the background consumer that journals it.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ReservationsQueue is the durable queue reservation events are routed to.
const ReservationsQueue = "reservations.events"

// ReservationEvent is published after a reservation is committed or
// cancelled. It carries enough for consumers to log or notify without
// reading the database.
type ReservationEvent struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	ReservationID uint64 `json:"reservation_id"`
	ClientID      uint64 `json:"client_id"`
	TableID       uint64 `json:"table_id"`
	At            string `json:"at"`
	PartySize     int    `json:"party_size"`
	CostCents     uint32 `json:"cost_cents"`
	Status        string `json:"status"`
	OccurredAt    string `json:"occurred_at"`
}

// NewReservationEvent snapshots r under a fresh event ID.
func NewReservationEvent(eventType string, r model.Reservation, now time.Time) ReservationEvent {
	return ReservationEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		ReservationID: r.ID,
		ClientID:      r.ClientID,
		TableID:       r.TableID,
		At:            r.At.UTC().Format(time.RFC3339),
		PartySize:     r.PartySize,
		CostCents:     r.CostCents,
		Status:        string(r.Status),
		OccurredAt:    now.UTC().Format(time.RFC3339),
	}
}

// LogLine renders the event as one journal line.
func (e ReservationEvent) LogLine() string {
	return fmt.Sprintf("[%s] %s | event_id=%s | reservation_id=%d | client_id=%d | table_id=%d | at=%s | party=%d | cost=%d cents | status=%s\n",
		e.OccurredAt, e.Type, e.ID, e.ReservationID, e.ClientID, e.TableID, e.At, e.PartySize, e.CostCents, e.Status)
}
