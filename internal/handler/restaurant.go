package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/admission"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// RestaurantStore reads the restaurant singleton and edits its hours.
type RestaurantStore interface {
	Get(ctx context.Context) (*model.Restaurant, error)
	UpdateHours(ctx context.Context, opens, closes model.TimeOfDay) (*model.Restaurant, error)
}

// RestaurantHandler exposes the restaurant profile, opening status and
// bookable slots.
type RestaurantHandler struct {
	Restaurants RestaurantStore
	Policy      admission.Policy
	SlotStep    time.Duration
	Now         func() time.Time
}

func NewRestaurantHandler(store RestaurantStore, policy admission.Policy, slotStep time.Duration) *RestaurantHandler {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &RestaurantHandler{Restaurants: store, Policy: policy, SlotStep: slotStep, Now: time.Now}
}

type hoursReq struct {
	Opens  string `json:"opens" validate:"required,clock"`
	Closes string `json:"closes" validate:"required,clock"`
}

func (h *RestaurantHandler) load(c echo.Context) (*model.Restaurant, error) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	r, err := h.Restaurants.Get(ctx)
	if errors.Is(err, repository.ErrRestaurantNotFound) {
		return nil, notFound(c, "restaurant")
	}
	if err != nil {
		return nil, internalError(c, "load restaurant failed", err)
	}
	return r, nil
}

// Get returns the restaurant profile and hours.
func (h *RestaurantHandler) Get(c echo.Context) error {
	r, err := h.load(c)
	if r == nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// Status reports whether the restaurant is open at ?at= (default now) and
// how many minutes remain before closing.
func (h *RestaurantHandler) Status(c echo.Context) error {
	at := h.Now()
	if v := c.QueryParam("at"); v != "" {
		t, err := parseInstant(v, h.Policy.Location)
		if err != nil {
			return badRequest(c, err.Error())
		}
		at = t
	}
	r, err := h.load(c)
	if r == nil {
		return err
	}
	local := at.In(h.Policy.Location)
	return c.JSON(http.StatusOK, echo.Map{
		"at":                  local.Format(time.RFC3339),
		"open":                r.IsOpenAt(local),
		"minutes_until_close": r.MinutesUntilClose(local),
		"opens":               r.Opens,
		"closes":              r.Closes,
	})
}

// Slots lists the start times a booking may use.
func (h *RestaurantHandler) Slots(c echo.Context) error {
	r, err := h.load(c)
	if r == nil {
		return err
	}
	slots := r.Slots(h.SlotStep, h.Policy.ClosingMargin)
	if slots == nil {
		slots = []model.TimeOfDay{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"step_minutes": int(h.SlotStep / time.Minute),
		"last_seating": r.Closes.Add(-h.Policy.ClosingMargin),
		"slots":        slots,
	})
}

// UpdateHours changes opening and closing times.
func (h *RestaurantHandler) UpdateHours(c echo.Context) error {
	var req hoursReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	opens, _ := model.ParseTimeOfDay(req.Opens)
	closes, _ := model.ParseTimeOfDay(req.Closes)

	ctx, cancel := requestCtx(c)
	defer cancel()

	r, err := h.Restaurants.UpdateHours(ctx, opens, closes)
	switch {
	case errors.Is(err, model.ErrInvalidHours):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrRestaurantNotFound):
		return notFound(c, "restaurant")
	case err != nil:
		return internalError(c, "update hours failed", err)
	}
	return c.JSON(http.StatusOK, r)
}
