// Package admission decides whether a reservation may be committed. Every
// check returns a typed *Rejection naming exactly one Reason; the Controller
// runs the checks in a fixed fail-fast order inside an atomic store section.
package admission

import (
	"fmt"
	"net/http"
)

// Reason identifies why a reservation attempt or cancellation was refused.
type Reason string

const (
	ReasonNullParameter              Reason = "NULL_PARAMETER"
	ReasonInvalidPartySize           Reason = "INVALID_PARTY_SIZE"
	ReasonLeadTimeTooShort           Reason = "LEAD_TIME_TOO_SHORT"
	ReasonHorizonExceeded            Reason = "HORIZON_EXCEEDED"
	ReasonBeforeOpening              Reason = "BEFORE_OPENING"
	ReasonTooCloseToClosing          Reason = "TOO_CLOSE_TO_CLOSING"
	ReasonBelowMinCapacity           Reason = "BELOW_MIN_CAPACITY"
	ReasonExceedsMaxCapacity         Reason = "EXCEEDS_MAX_CAPACITY"
	ReasonTableUnavailable           Reason = "TABLE_UNAVAILABLE"
	ReasonClientHasActiveReservation Reason = "CLIENT_HAS_ACTIVE_RESERVATION"
	ReasonAlreadyCancelled           Reason = "ALREADY_CANCELLED"
	ReasonPastReservation            Reason = "PAST_RESERVATION"
	ReasonStorageError               Reason = "STORAGE_ERROR"
)

// Rejection is the error returned for every refused attempt. Err is set only
// for STORAGE_ERROR and holds the underlying persistence failure.
type Rejection struct {
	Reason Reason
	Detail string
	Err    error
}

func (r *Rejection) Error() string {
	msg := string(r.Reason)
	if r.Detail != "" {
		msg += ": " + r.Detail
	}
	if r.Err != nil {
		msg += ": " + r.Err.Error()
	}
	return msg
}

func (r *Rejection) Unwrap() error { return r.Err }

// Is matches another *Rejection with the same reason, so callers can write
// errors.Is(err, &admission.Rejection{Reason: admission.ReasonTableUnavailable}).
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

// HTTPStatus maps the reason onto the status code handlers respond with.
func (r *Rejection) HTTPStatus() int {
	switch r.Reason {
	case ReasonStorageError:
		return http.StatusInternalServerError
	case ReasonTableUnavailable, ReasonClientHasActiveReservation,
		ReasonAlreadyCancelled, ReasonPastReservation:
		return http.StatusConflict
	case ReasonNullParameter:
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

func reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func storageError(err error) *Rejection {
	return &Rejection{Reason: ReasonStorageError, Err: err}
}
