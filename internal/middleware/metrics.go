package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/metrics"
)

// Metrics records request count and latency per route template, so
// /v1/tables/1 and /v1/tables/2 share a series.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo write the error response so the status is final.
				c.Error(err)
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			metrics.ObserveHTTPRequest(c.Request().Method, path,
				strconv.Itoa(c.Response().Status), time.Since(start))
			return nil
		}
	}
}
