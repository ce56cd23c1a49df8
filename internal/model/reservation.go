package model

import "time"

// ReservationStatus is the lifecycle state of a reservation. ACTIVE is the
// only state a reservation is created in; CANCELLED is terminal.
type ReservationStatus string

const (
	StatusActive    ReservationStatus = "ACTIVE"
	StatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation books one table for one client on one calendar day.
//
// Fields:
//  ID           – primary key identifier.
//  At           – the instant the table is reserved for.
//  PartySize    – number of guests.
//  CostCents    – price charged for the booking.
//  Status       – ACTIVE or CANCELLED.
//  ClientID     – client holding the reservation.
//  TableID      – reserved table.
//  RestaurantID – the restaurant singleton.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Reservation struct {
	ID           uint64            `json:"id"`
	At           time.Time         `json:"at"`
	PartySize    int               `json:"party_size"`
	CostCents    uint32            `json:"cost_cents"`
	Status       ReservationStatus `json:"status"`
	ClientID     uint64            `json:"client_id"`
	TableID      uint64            `json:"table_id"`
	RestaurantID uint64            `json:"restaurant_id"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IsActive reports whether the reservation still holds its table.
func (r *Reservation) IsActive() bool { return r != nil && r.Status == StatusActive }

// Day truncates t to midnight of its calendar day in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return Day(a, loc).Equal(Day(b, loc))
}

// ReservationDetail joins a reservation with the client and table it
// references. It is what listing and report endpoints return.
type ReservationDetail struct {
	Reservation
	ClientName    string    `json:"client_name"`
	ClientPhone   string    `json:"client_phone,omitempty"`
	TableCode     string    `json:"table_code"`
	TableSize     SizeClass `json:"table_size"`
	TableLocation Location  `json:"table_location"`
}
