// Package repository defines the persistence layer. Sentinel errors here let
// the admission core and the handlers tell apart not-found lookups, storage
// level uniqueness violations and plain infrastructure failures.
package repository

import "errors"

var (
	ErrClientNotFound      = errors.New("client not found")
	ErrTableNotFound       = errors.New("table not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrRestaurantNotFound  = errors.New("restaurant not configured")
)

// ErrTableDayTaken is returned by CreateReservation when the table already
// holds an ACTIVE reservation on that calendar day. The MySQL store surfaces
// it from the uq_reservations_table_day unique key.
var ErrTableDayTaken = errors.New("table already reserved that day")

// ErrClientHasActive is returned by CreateReservation when the client already
// holds an ACTIVE reservation. Backed by uq_reservations_active_client.
var ErrClientHasActive = errors.New("client already has an active reservation")

// ErrConflict signals a write that cannot proceed because of conflicting
// state, e.g. a duplicate table code.
var ErrConflict = errors.New("conflict")
