package admission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iliyamo/restaurant-table-reservation/internal/log"
	"github.com/iliyamo/restaurant-table-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

var tracer = otel.Tracer("github.com/iliyamo/restaurant-table-reservation/internal/admission")

// Stage names the step an admission attempt reached. A rejected attempt
// stops at the stage whose check failed.
type Stage string

const (
	StageStart               Stage = "START"
	StageParamsValidated     Stage = "PARAMS_VALIDATED"
	StageEligibilityChecked  Stage = "ELIGIBILITY_CHECKED"
	StageWindowValidated     Stage = "WINDOW_VALIDATED"
	StageHoursChecked        Stage = "HORARIO_CHECKED"
	StageCapacityChecked     Stage = "CAPACITY_CHECKED"
	StageAvailabilityChecked Stage = "AVAILABILITY_CHECKED"
	StageCommitted           Stage = "COMMITTED"
)

// EventKind tells a Notifier what happened to a reservation.
type EventKind string

const (
	EventCreated   EventKind = "reservation.created"
	EventCancelled EventKind = "reservation.cancelled"
)

// Notifier is told about committed state changes. It runs after commit, so
// an error is logged and never undoes the change.
type Notifier interface {
	Notify(ctx context.Context, kind EventKind, r model.Reservation) error
}

// Request carries the inputs of one admission attempt.
type Request struct {
	Client    *model.Client
	Table     *model.Table
	At        time.Time
	PartySize int
	CostCents uint32
}

// Controller orchestrates reservation admission and cancellation.
type Controller struct {
	store    repository.Store
	policy   Policy
	notifier Notifier
}

// Option configures a Controller.
type Option func(*Controller)

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithNotifier registers n to receive created and cancelled events.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// New builds a Controller over store. store must not be nil.
func New(store repository.Store, opts ...Option) *Controller {
	if store == nil {
		panic("nil store passed to admission.New")
	}
	c := &Controller{store: store, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the constants the controller validates against.
func (c *Controller) Policy() Policy { return c.policy }

// Admit runs the admission chain for req at instant now and persists an
// ACTIVE reservation when every check passes. Any failure is returned as a
// *Rejection and leaves the store untouched.
func (c *Controller) Admit(ctx context.Context, req Request, now time.Time) (*model.Reservation, error) {
	ctx, span := tracer.Start(ctx, "admission.Admit")
	defer span.End()
	start := time.Now()

	res, stage, err := c.admit(ctx, req, now)
	c.finish(ctx, "admit", stage, err, start)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("reservation.id", int64(res.ID)))
	c.notify(ctx, EventCreated, *res)
	return res, nil
}

func (c *Controller) admit(ctx context.Context, req Request, now time.Time) (*model.Reservation, Stage, error) {
	stage := StageStart
	switch {
	case req.Client == nil:
		return nil, stage, reject(ReasonNullParameter, "client is required")
	case req.Table == nil:
		return nil, stage, reject(ReasonNullParameter, "table is required")
	case req.At.IsZero():
		return nil, stage, reject(ReasonNullParameter, "reservation time is required")
	}
	stage = StageParamsValidated

	var out *model.Reservation
	scope := repository.Scope{TableID: req.Table.ID, ClientID: req.Client.ID}
	err := c.store.Atomic(ctx, scope, func(ctx context.Context, q repository.Queries) error {
		busy, err := HasActiveReservation(ctx, q, req.Client)
		if err != nil {
			return storageError(err)
		}
		if busy {
			return reject(ReasonClientHasActiveReservation, "client %d already holds an active reservation", req.Client.ID)
		}
		stage = StageEligibilityChecked

		if rej := ValidateLeadTime(req.At, now, c.policy); rej != nil {
			return rej
		}
		stage = StageWindowValidated

		restaurant, err := q.Restaurant(ctx)
		if err != nil {
			return storageError(err)
		}
		if rej := ValidateHours(req.At, *restaurant, c.policy); rej != nil {
			return rej
		}
		stage = StageHoursChecked

		if rej := ValidateCapacity(req.PartySize, req.Table); rej != nil {
			return rej
		}
		stage = StageCapacityChecked

		free, err := IsAvailable(ctx, q, req.Table, req.At)
		if err != nil {
			return storageError(err)
		}
		if !free {
			return reject(ReasonTableUnavailable, "table %s is already reserved on %s",
				req.Table.Code, req.At.In(c.policy.loc()).Format(time.DateOnly))
		}
		stage = StageAvailabilityChecked

		r := &model.Reservation{
			At:           req.At,
			PartySize:    req.PartySize,
			CostCents:    req.CostCents,
			Status:       model.StatusActive,
			ClientID:     req.Client.ID,
			TableID:      req.Table.ID,
			RestaurantID: restaurant.ID,
		}
		if err := q.CreateReservation(ctx, r); err != nil {
			switch {
			case errors.Is(err, repository.ErrTableDayTaken):
				return reject(ReasonTableUnavailable, "table %s was reserved concurrently", req.Table.Code)
			case errors.Is(err, repository.ErrClientHasActive):
				return reject(ReasonClientHasActiveReservation, "client %d reserved concurrently", req.Client.ID)
			}
			return storageError(err)
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, stage, asRejection(err)
	}
	return out, StageCommitted, nil
}

// Cancel moves an ACTIVE reservation to CANCELLED. The persisted status is
// re-read inside the atomic section, so of two racing cancellations exactly
// one succeeds and the other gets ALREADY_CANCELLED.
func (c *Controller) Cancel(ctx context.Context, r *model.Reservation, now time.Time) (*model.Reservation, error) {
	ctx, span := tracer.Start(ctx, "admission.Cancel")
	defer span.End()
	start := time.Now()

	res, err := c.cancel(ctx, r, now)
	stage := StageCommitted
	if err != nil {
		stage = StageStart
		span.SetStatus(codes.Error, err.Error())
	}
	c.finish(ctx, "cancel", stage, err, start)
	if err != nil {
		return nil, err
	}
	c.notify(ctx, EventCancelled, *res)
	return res, nil
}

func (c *Controller) cancel(ctx context.Context, r *model.Reservation, now time.Time) (*model.Reservation, error) {
	if r == nil {
		return nil, reject(ReasonNullParameter, "reservation is required")
	}
	var out *model.Reservation
	scope := repository.Scope{TableID: r.TableID, ClientID: r.ClientID}
	err := c.store.Atomic(ctx, scope, func(ctx context.Context, q repository.Queries) error {
		cur, err := q.ReservationByID(ctx, r.ID)
		if err != nil {
			return storageError(err)
		}
		if cur.Status == model.StatusCancelled {
			return reject(ReasonAlreadyCancelled, "reservation %d is already cancelled", cur.ID)
		}
		if cur.At.Before(now) {
			return reject(ReasonPastReservation, "reservation %d was for %s", cur.ID, cur.At.In(c.policy.loc()).Format(time.RFC3339))
		}
		if err := q.UpdateReservationStatus(ctx, cur.ID, model.StatusCancelled); err != nil {
			return storageError(err)
		}
		cur.Status = model.StatusCancelled
		out = cur
		return nil
	})
	if err != nil {
		return nil, asRejection(err)
	}
	return out, nil
}

// TableAvailable reports whether t is free on the calendar day of day. It
// takes no locks, so the answer may be stale by the time a booking is made;
// Admit re-checks under lock.
func (c *Controller) TableAvailable(ctx context.Context, t *model.Table, day time.Time) (bool, error) {
	if t == nil {
		return false, reject(ReasonNullParameter, "table is required")
	}
	var free bool
	err := c.store.Atomic(ctx, repository.Scope{}, func(ctx context.Context, q repository.Queries) error {
		var err error
		free, err = IsAvailable(ctx, q, t, day)
		return err
	})
	if err != nil {
		return false, storageError(err)
	}
	return free, nil
}

// asRejection keeps rejections raised inside an atomic section and wraps
// anything else (begin, lock or commit failures) as STORAGE_ERROR.
func asRejection(err error) *Rejection {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej
	}
	return storageError(err)
}

func (c *Controller) finish(ctx context.Context, op string, stage Stage, err error, start time.Time) {
	outcome := "committed"
	if err != nil {
		outcome = string(asRejection(err).Reason)
	}
	metrics.ObserveAdmission(op, outcome, time.Since(start))

	attrs := []slog.Attr{slog.String("op", op), slog.String("stage", string(stage)), slog.String("outcome", outcome)}
	switch {
	case err == nil:
		log.Info(ctx, "reservation committed", attrs...)
	case outcome == string(ReasonStorageError):
		log.Error(ctx, "reservation storage failure", append(attrs, log.Err("error", err))...)
	default:
		log.Info(ctx, "reservation rejected", append(attrs, log.Err("error", err))...)
	}
}

func (c *Controller) notify(ctx context.Context, kind EventKind, r model.Reservation) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, kind, r); err != nil {
		log.Warn(ctx, "reservation event not delivered",
			slog.String("event", string(kind)), slog.Uint64("reservation_id", r.ID), log.Err("error", err))
	}
}
