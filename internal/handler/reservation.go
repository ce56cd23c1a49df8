package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/admission"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// ClientReader loads clients by ID.
type ClientReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Client, error)
}

// TableReader loads tables by ID.
type TableReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Table, error)
}

// ReservationReader is the read side of reservations.
type ReservationReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	GetDetail(ctx context.Context, id uint64) (*model.ReservationDetail, error)
	Search(ctx context.Context, f repository.ReservationFilter) ([]model.ReservationDetail, error)
}

// ReservationHandler books, cancels and looks up reservations. Every
// decision is delegated to the admission controller.
type ReservationHandler struct {
	Admission    *admission.Controller
	Clients      ClientReader
	Tables       TableReader
	Reservations ReservationReader
	Now          func() time.Time
}

func NewReservationHandler(ctrl *admission.Controller, clients ClientReader, tables TableReader, reservations ReservationReader) *ReservationHandler {
	if ctrl == nil || clients == nil || tables == nil || reservations == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Admission: ctrl, Clients: clients, Tables: tables, Reservations: reservations, Now: time.Now}
}

type createReservationReq struct {
	ClientID  uint64  `json:"client_id" validate:"required"`
	TableID   uint64  `json:"table_id" validate:"required"`
	At        string  `json:"at" validate:"required"`
	PartySize int     `json:"party_size"`
	CostCents *uint32 `json:"cost_cents"`
}

// Create runs an admission attempt. Party size is validated by the
// controller so the response carries the rejection reason. When cost is
// omitted the table's size class price applies.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	loc := h.Admission.Policy().Location
	if loc == nil {
		loc = time.UTC
	}
	at, err := parseInstant(req.At, loc)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	client, err := h.Clients.GetByID(ctx, req.ClientID)
	if errors.Is(err, repository.ErrClientNotFound) {
		return notFound(c, "client")
	}
	if err != nil {
		return internalError(c, "load client failed", err)
	}
	table, err := h.Tables.GetByID(ctx, req.TableID)
	if errors.Is(err, repository.ErrTableNotFound) {
		return notFound(c, "table")
	}
	if err != nil {
		return internalError(c, "load table failed", err)
	}

	cost := table.Size.PriceCents()
	if req.CostCents != nil {
		cost = *req.CostCents
	}
	res, err := h.Admission.Admit(ctx, admission.Request{
		Client:    client,
		Table:     table,
		At:        at,
		PartySize: req.PartySize,
		CostCents: cost,
	}, h.Now())
	if err != nil {
		return rejection(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Cancel moves a reservation to CANCELLED.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	r, err := h.Reservations.GetByID(ctx, id)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return notFound(c, "reservation")
	}
	if err != nil {
		return internalError(c, "load reservation failed", err)
	}
	out, err := h.Admission.Cancel(ctx, r, h.Now())
	if err != nil {
		return rejection(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one reservation with its client and table.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	d, err := h.Reservations.GetDetail(ctx, id)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return notFound(c, "reservation")
	}
	if err != nil {
		return internalError(c, "load reservation failed", err)
	}
	return c.JSON(http.StatusOK, d)
}

// Search filters reservations by ?name=&phone=&date=&from=&to=&location=
// &size=&status=&limit=&offset=.
func (h *ReservationHandler) Search(c echo.Context) error {
	f, err := h.filter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	items, err := h.Reservations.Search(ctx, f)
	if err != nil {
		return internalError(c, "search reservations failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "limit": f.Limit, "offset": f.Offset})
}

func (h *ReservationHandler) filter(c echo.Context) (repository.ReservationFilter, error) {
	loc := h.Admission.Policy().Location
	if loc == nil {
		loc = time.UTC
	}
	f := repository.ReservationFilter{
		ClientName: c.QueryParam("name"),
		Phone:      c.QueryParam("phone"),
		Limit:      queryInt(c, "limit", 50),
		Offset:     queryInt(c, "offset", 0),
	}
	if f.Limit == 0 || f.Limit > 500 {
		f.Limit = 50
	}
	var err error
	if f.Day, err = parseDay(c.QueryParam("date"), loc); err != nil {
		return f, err
	}
	if f.From, err = parseDay(c.QueryParam("from"), loc); err != nil {
		return f, err
	}
	if f.To, err = parseDay(c.QueryParam("to"), loc); err != nil {
		return f, err
	}
	if v := c.QueryParam("location"); v != "" {
		if f.Location, err = model.ParseLocation(v); err != nil {
			return f, err
		}
	}
	if v := c.QueryParam("size"); v != "" {
		if f.Size, err = model.ParseSizeClass(v); err != nil {
			return f, err
		}
	}
	switch s := model.ReservationStatus(strings.ToUpper(c.QueryParam("status"))); s {
	case "", model.StatusActive, model.StatusCancelled:
		f.Status = s
	default:
		return f, errors.New("status must be ACTIVE or CANCELLED")
	}
	return f, nil
}
