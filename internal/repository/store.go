package repository

import (
	"context"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Scope names the rows an atomic section must serialize on. Zero IDs are
// ignored.
type Scope struct {
	TableID  uint64
	ClientID uint64
}

// Queries is the set of reads and writes available inside an atomic
// section. Lookups return (nil, nil) when nothing matches.
type Queries interface {
	// ActiveReservationForTable returns the ACTIVE reservation held by the
	// table on the calendar day of day, if any.
	ActiveReservationForTable(ctx context.Context, tableID uint64, day time.Time) (*model.Reservation, error)
	// ActiveReservationForClient returns the client's ACTIVE reservation, if any.
	ActiveReservationForClient(ctx context.Context, clientID uint64) (*model.Reservation, error)
	// ReservationByID returns ErrReservationNotFound when the id is unknown.
	ReservationByID(ctx context.Context, id uint64) (*model.Reservation, error)
	// CreateReservation inserts r and fills its ID and timestamps. It fails
	// with ErrTableDayTaken or ErrClientHasActive when the insert would break
	// a uniqueness invariant.
	CreateReservation(ctx context.Context, r *model.Reservation) error
	// UpdateReservationStatus sets the status of an existing reservation.
	UpdateReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus) error
	// Restaurant returns the restaurant singleton.
	Restaurant(ctx context.Context) (*model.Restaurant, error)
}

// Store hands out atomic sections. Two sections whose scopes share a table
// or a client never interleave; fn's writes are committed only when fn
// returns nil.
type Store interface {
	Atomic(ctx context.Context, scope Scope, fn func(ctx context.Context, q Queries) error) error
}
