// Package router registers the HTTP routes of the reservation API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Handlers groups everything RegisterRoutes wires.
type Handlers struct {
	DB           handler.Pinger
	Auth         *handler.AuthHandler
	Clients      *handler.ClientHandler
	Tables       *handler.TableHandler
	Restaurant   *handler.RestaurantHandler
	Reservations *handler.ReservationHandler
	Reports      *handler.ReportHandler
}

// RegisterRoutes mounts every route on e. limit guards every unauthenticated
// read. cache only wraps the table catalog; hours and availability are
// always served live.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string, limit, cache echo.MiddlewareFunc) {
	if limit == nil {
		limit = noop
	}
	if cache == nil {
		cache = noop
	}

	e.GET("/healthz", handler.Health(h.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Session management. Register is open only until the first ADMIN exists.
	a := e.Group("/v1/auth")
	a.POST("/register", h.Auth.Register)
	a.POST("/login", h.Auth.Login)
	a.POST("/refresh", h.Auth.Refresh)
	a.POST("/logout", h.Auth.Logout)

	// Public reads.
	p := e.Group("/v1", limit)
	p.GET("/restaurant", h.Restaurant.Get)
	p.GET("/restaurant/slots", h.Restaurant.Slots)
	p.GET("/restaurant/status", h.Restaurant.Status)
	p.GET("/tables", h.Tables.List, cache)
	p.GET("/tables/:id/availability", h.Tables.Availability)

	// Front desk: HOST or ADMIN.
	staff := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin, model.RoleHost))
	staff.GET("/me", h.Auth.Me)
	staff.POST("/clients", h.Clients.Create)
	staff.POST("/clients/batch", h.Clients.CreateBatch)
	staff.GET("/clients", h.Clients.List)
	staff.GET("/clients/:id", h.Clients.Get)
	staff.POST("/reservations", h.Reservations.Create)
	staff.GET("/reservations", h.Reservations.Search)
	staff.GET("/reservations/:id", h.Reservations.Get)
	staff.POST("/reservations/:id/cancel", h.Reservations.Cancel)

	// Management: ADMIN only.
	admin := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	admin.POST("/tables/batch", h.Tables.BulkCreate)
	admin.GET("/tables/counts", h.Tables.Counts)
	admin.PUT("/restaurant/hours", h.Restaurant.UpdateHours)
	admin.GET("/reports/reservations", h.Reports.Reservations)
}

func noop(next echo.HandlerFunc) echo.HandlerFunc { return next }
