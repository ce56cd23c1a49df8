package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-reservation/internal/admission"
	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository/memstore"
)

type restaurantStub struct {
	mu sync.Mutex
	r  model.Restaurant
}

func (s *restaurantStub) Get(context.Context) (*model.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.r
	return &r, nil
}

func (s *restaurantStub) UpdateHours(_ context.Context, opens, closes model.TimeOfDay) (*model.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r.Opens, s.r.Closes = opens, closes
	r := s.r
	return &r, nil
}

type tablesStub struct{ store *memstore.Store }

func (t tablesStub) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
	return t.store.Table(ctx, id)
}

func (t tablesStub) List(context.Context, repository.TableFilter) ([]model.Table, error) {
	return []model.Table{}, nil
}

func (t tablesStub) CountByLocation(context.Context) (map[model.Location]int, error) {
	return map[model.Location]int{}, nil
}

type fixture struct {
	e          *echo.Echo
	store      *memstore.Store
	restaurant *restaurantStub
	table      model.Table
}

func newFixture(limit, cache echo.MiddlewareFunc) *fixture {
	hours := model.Restaurant{ID: 1, Name: "Test", Opens: model.NewTimeOfDay(9, 0, 0), Closes: model.NewTimeOfDay(22, 0, 0)}
	store := memstore.New(time.UTC)
	store.SetRestaurant(hours)
	table := store.AddTable(model.Table{Code: "GEN-4-001", Size: model.SizeMedium, MinCapacity: 2, MaxCapacity: 4, Location: model.LocationGeneral})
	ctrl := admission.New(store)
	rs := &restaurantStub{r: hours}
	tables := tablesStub{store: store}

	e := echo.New()
	RegisterRoutes(e, Handlers{
		Restaurant: handler.NewRestaurantHandler(rs, ctrl.Policy(), 30*time.Minute),
		Tables:     handler.NewTableHandler(tables, nil, ctrl),
	}, "router-secret", limit, cache)
	return &fixture{e: e, store: store, restaurant: rs, table: table}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// recorder notes the matched route of every request it wraps.
type recorder struct {
	mu     sync.Mutex
	routes map[string]bool
}

func (r *recorder) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r.mu.Lock()
		if r.routes == nil {
			r.routes = map[string]bool{}
		}
		r.routes[c.Path()] = true
		r.mu.Unlock()
		return next(c)
	}
}

// memoryCache replays the first 200 response of each URL.
type memoryCache struct {
	mu    sync.Mutex
	saved map[string][]byte
}

type teeWriter struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (m *memoryCache) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().URL.String()
		m.mu.Lock()
		body, ok := m.saved[key]
		m.mu.Unlock()
		if ok {
			c.Response().Header().Set("X-Cache", "HIT")
			return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
		}
		tw := &teeWriter{ResponseWriter: c.Response().Writer}
		c.Response().Writer = tw
		if err := next(c); err != nil {
			return err
		}
		if c.Response().Status == http.StatusOK {
			m.mu.Lock()
			if m.saved == nil {
				m.saved = map[string][]byte{}
			}
			m.saved[key] = tw.buf.Bytes()
			m.mu.Unlock()
		}
		return nil
	}
}

func availabilityPath(t model.Table) string {
	return fmt.Sprintf("/v1/tables/%d/availability?date=2025-03-13", t.ID)
}

func TestPublicReadsAreLimitedButOnlyCatalogIsCached(t *testing.T) {
	var limited, cached recorder
	f := newFixture(limited.middleware, cached.middleware)

	for _, path := range []string{
		"/v1/restaurant",
		"/v1/restaurant/slots",
		"/v1/restaurant/status",
		"/v1/tables",
		availabilityPath(f.table),
	} {
		require.Equal(t, http.StatusOK, f.get(t, path).Code, path)
	}

	assert.Equal(t, map[string]bool{
		"/v1/restaurant":              true,
		"/v1/restaurant/slots":        true,
		"/v1/restaurant/status":       true,
		"/v1/tables":                  true,
		"/v1/tables/:id/availability": true,
	}, limited.routes)
	assert.Equal(t, map[string]bool{"/v1/tables": true}, cached.routes)
}

func TestHoursAndAvailabilityAreServedLive(t *testing.T) {
	var cache memoryCache
	f := newFixture(nil, cache.middleware)
	avail := availabilityPath(f.table)

	decode := func(rec *httptest.ResponseRecorder) map[string]any {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code)
		var out map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	assert.Equal(t, true, decode(f.get(t, avail))["available"])
	assert.Equal(t, "22:00", decode(f.get(t, "/v1/restaurant"))["closes"])

	f.store.PutReservation(model.Reservation{
		ClientID: 7, TableID: f.table.ID, RestaurantID: 1, PartySize: 3,
		At: time.Date(2025, 3, 13, 20, 30, 0, 0, time.UTC), Status: model.StatusActive,
	})
	_, err := f.restaurant.UpdateHours(context.Background(), model.NewTimeOfDay(10, 0, 0), model.NewTimeOfDay(23, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, false, decode(f.get(t, avail))["available"])
	assert.Equal(t, "23:00", decode(f.get(t, "/v1/restaurant"))["closes"])

	f.get(t, "/v1/tables")
	assert.Equal(t, "HIT", f.get(t, "/v1/tables").Header().Get("X-Cache"))
}
