// Package memstore is an in-process implementation of repository.Store. A
// single mutex serializes atomic sections, and inserts re-check the
// one-per-table-day and one-per-client invariants the same way the MySQL
// unique keys do.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// Store keeps restaurant, clients, tables and reservations in maps.
type Store struct {
	mu           sync.Mutex
	loc          *time.Location
	restaurant   *model.Restaurant
	clients      map[uint64]model.Client
	tables       map[uint64]model.Table
	reservations map[uint64]model.Reservation
	nextID       uint64
	fail         error
	now          func() time.Time
}

// New returns an empty store that evaluates calendar days in loc.
func New(loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		loc:          loc,
		clients:      make(map[uint64]model.Client),
		tables:       make(map[uint64]model.Table),
		reservations: make(map[uint64]model.Reservation),
		now:          time.Now,
	}
}

// SetRestaurant stores the restaurant singleton.
func (s *Store) SetRestaurant(r model.Restaurant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = 1
	}
	s.restaurant = &r
}

// AddClient stores c, assigning an ID when it has none.
func (s *Store) AddClient(c model.Client) model.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.id()
	}
	s.clients[c.ID] = c
	return c
}

// AddTable stores t, assigning an ID when it has none.
func (s *Store) AddTable(t model.Table) model.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.id()
	}
	s.tables[t.ID] = t
	return t
}

// PutReservation stores r as-is, bypassing the invariants. Tests use it to
// seed history such as past reservations.
func (s *Store) PutReservation(r model.Reservation) model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	s.reservations[r.ID] = r
	return r
}

// FailWith makes every subsequent atomic section fail with err. Pass nil to
// recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Reservations returns a snapshot ordered by ID.
func (s *Store) Reservations() []model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Client returns the stored client or repository.ErrClientNotFound.
func (s *Store) Client(_ context.Context, id uint64) (*model.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, repository.ErrClientNotFound
	}
	return &c, nil
}

// Table returns the stored table or repository.ErrTableNotFound.
func (s *Store) Table(_ context.Context, id uint64) (*model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, repository.ErrTableNotFound
	}
	return &t, nil
}

// Reservation returns the stored reservation or
// repository.ErrReservationNotFound.
func (s *Store) Reservation(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return &r, nil
}

// Atomic runs fn under the store mutex. Reservation writes made by fn are
// rolled back when it returns an error.
func (s *Store) Atomic(ctx context.Context, scope repository.Scope, fn func(ctx context.Context, q repository.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if _, ok := s.tables[scope.TableID]; scope.TableID != 0 && !ok {
		return fmt.Errorf("lock table %d: %w", scope.TableID, repository.ErrTableNotFound)
	}
	if _, ok := s.clients[scope.ClientID]; scope.ClientID != 0 && !ok {
		return fmt.Errorf("lock client %d: %w", scope.ClientID, repository.ErrClientNotFound)
	}

	snapshot := make(map[uint64]model.Reservation, len(s.reservations))
	for k, v := range s.reservations {
		snapshot[k] = v
	}
	nextID := s.nextID
	if err := fn(ctx, queries{s}); err != nil {
		s.reservations = snapshot
		s.nextID = nextID
		return err
	}
	return nil
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// queries runs with s.mu already held by Atomic.
type queries struct{ s *Store }

func (q queries) ActiveReservationForTable(_ context.Context, tableID uint64, day time.Time) (*model.Reservation, error) {
	for _, r := range q.s.reservations {
		if r.TableID == tableID && r.IsActive() && model.SameDay(r.At, day, q.s.loc) {
			return &r, nil
		}
	}
	return nil, nil
}

func (q queries) ActiveReservationForClient(_ context.Context, clientID uint64) (*model.Reservation, error) {
	for _, r := range q.s.reservations {
		if r.ClientID == clientID && r.IsActive() {
			return &r, nil
		}
	}
	return nil, nil
}

func (q queries) ReservationByID(_ context.Context, id uint64) (*model.Reservation, error) {
	r, ok := q.s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return &r, nil
}

func (q queries) CreateReservation(ctx context.Context, r *model.Reservation) error {
	if r.Status == model.StatusActive {
		if cur, _ := q.ActiveReservationForTable(ctx, r.TableID, r.At); cur != nil {
			return repository.ErrTableDayTaken
		}
		if cur, _ := q.ActiveReservationForClient(ctx, r.ClientID); cur != nil {
			return repository.ErrClientHasActive
		}
	}
	now := q.s.now().UTC()
	r.ID = q.s.id()
	r.CreatedAt, r.UpdatedAt = now, now
	q.s.reservations[r.ID] = *r
	return nil
}

func (q queries) UpdateReservationStatus(_ context.Context, id uint64, status model.ReservationStatus) error {
	r, ok := q.s.reservations[id]
	if !ok {
		return repository.ErrReservationNotFound
	}
	r.Status = status
	r.UpdatedAt = q.s.now().UTC()
	q.s.reservations[id] = r
	return nil
}

func (q queries) Restaurant(context.Context) (*model.Restaurant, error) {
	if q.s.restaurant == nil {
		return nil, repository.ErrRestaurantNotFound
	}
	r := *q.s.restaurant
	return &r, nil
}
