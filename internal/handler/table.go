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
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

// TableStore is the read side of dining tables.
type TableStore interface {
	TableReader
	List(ctx context.Context, f repository.TableFilter) ([]model.Table, error)
	CountByLocation(ctx context.Context) (map[model.Location]int, error)
}

// TableHandler lists tables, reports their availability and creates them
// in bulk.
type TableHandler struct {
	Tables    TableStore
	Bulk      *service.TableService
	Admission *admission.Controller
}

func NewTableHandler(tables TableStore, bulk *service.TableService, ctrl *admission.Controller) *TableHandler {
	return &TableHandler{Tables: tables, Bulk: bulk, Admission: ctrl}
}

type bulkTablesReq struct {
	Size     string `json:"size" validate:"required,size"`
	Location string `json:"location" validate:"required,location"`
	Count    int    `json:"count" validate:"required,min=1,max=100"`
}

// List returns tables filtered by ?size= and ?location=.
func (h *TableHandler) List(c echo.Context) error {
	var f repository.TableFilter
	var err error
	if v := c.QueryParam("size"); v != "" {
		if f.Size, err = model.ParseSizeClass(v); err != nil {
			return badRequest(c, err.Error())
		}
	}
	if v := c.QueryParam("location"); v != "" {
		if f.Location, err = model.ParseLocation(v); err != nil {
			return badRequest(c, err.Error())
		}
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	items, err := h.Tables.List(ctx, f)
	if err != nil {
		return internalError(c, "list tables failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Availability tells whether the table is free on ?date=YYYY-MM-DD.
func (h *TableHandler) Availability(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	loc := h.Admission.Policy().Location
	if loc == nil {
		loc = time.UTC
	}
	day, err := parseDay(c.QueryParam("date"), loc)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if day.IsZero() {
		return badRequest(c, "date is required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	t, err := h.Tables.GetByID(ctx, id)
	if errors.Is(err, repository.ErrTableNotFound) {
		return notFound(c, "table")
	}
	if err != nil {
		return internalError(c, "load table failed", err)
	}
	free, err := h.Admission.TableAvailable(ctx, t, day)
	if err != nil {
		return rejection(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"table_id":  t.ID,
		"code":      t.Code,
		"date":      day.Format(time.DateOnly),
		"available": free,
	})
}

// BulkCreate adds count tables of one size class at one location.
func (h *TableHandler) BulkCreate(c echo.Context) error {
	var req bulkTablesReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	size, _ := model.ParseSizeClass(req.Size)
	loc, _ := model.ParseLocation(req.Location)

	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.Bulk.BulkCreate(ctx, size, loc, req.Count)
	if service.IsBatchError(err) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		return internalError(c, "create tables failed", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"added":         res.Added,
		"skipped":       res.Skipped,
		"added_count":   len(res.Added),
		"skipped_count": len(res.Skipped),
	})
}

// Counts returns the number of tables per location.
func (h *TableHandler) Counts(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	counts, err := h.Tables.CountByLocation(ctx)
	if err != nil {
		return internalError(c, "count tables failed", err)
	}
	return c.JSON(http.StatusOK, counts)
}
