// Package handler exposes the HTTP handlers of the reservation API.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/admission"
	"github.com/iliyamo/restaurant-table-reservation/internal/log"
)

const requestTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(c echo.Context, name string, def int) int {
	if n, err := strconv.Atoi(c.QueryParam(name)); err == nil && n >= 0 {
		return n
	}
	return def
}

// parseDay reads a YYYY-MM-DD date as midnight in loc. Empty input yields
// the zero time.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

// parseInstant accepts RFC 3339, or a local "YYYY-MM-DDTHH:MM" that is
// read in loc.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, want RFC 3339 or YYYY-MM-DDTHH:MM", s)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func notFound(c echo.Context, what string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
}

func internalError(c echo.Context, msg string, err error) error {
	log.Error(c.Request().Context(), msg, slog.String("path", c.Path()), log.Err("error", err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

// rejection writes an admission refusal with its machine readable reason.
// Anything that is not a *admission.Rejection is an internal error.
func rejection(c echo.Context, err error) error {
	var rej *admission.Rejection
	if !errors.As(err, &rej) {
		return internalError(c, "reservation failed", err)
	}
	if rej.Reason == admission.ReasonStorageError {
		log.Error(c.Request().Context(), "reservation storage error", log.Err("error", rej))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error", "reason": rej.Reason})
	}
	return c.JSON(rej.HTTPStatus(), echo.Map{"error": rej.Detail, "reason": rej.Reason})
}
