package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

// ReportHandler serves reservation reports to admins.
type ReportHandler struct {
	Reports  *service.ReportService
	Location *time.Location
}

func NewReportHandler(reports *service.ReportService, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{Reports: reports, Location: loc}
}

// Reservations builds a report for ?from=&to= (inclusive days) with
// optional ?location= and ?size=.
func (h *ReportHandler) Reservations(c echo.Context) error {
	var (
		q   service.ReportQuery
		err error
	)
	if q.From, err = parseDay(c.QueryParam("from"), h.Location); err != nil {
		return badRequest(c, err.Error())
	}
	if q.To, err = parseDay(c.QueryParam("to"), h.Location); err != nil {
		return badRequest(c, err.Error())
	}
	if q.From.IsZero() || q.To.IsZero() {
		return badRequest(c, "from and to are required")
	}
	if v := c.QueryParam("location"); v != "" {
		if q.Location, err = model.ParseLocation(v); err != nil {
			return badRequest(c, err.Error())
		}
	}
	if v := c.QueryParam("size"); v != "" {
		if q.Size, err = model.ParseSizeClass(v); err != nil {
			return badRequest(c, err.Error())
		}
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	rep, err := h.Reports.Build(ctx, q)
	if errors.Is(err, service.ErrReportRange) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		return internalError(c, "build report failed", err)
	}
	return c.JSON(http.StatusOK, rep)
}
