package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ReservationStore implements Store on MySQL. Each atomic section is a
// READ COMMITTED transaction that first takes row locks on the dining table
// and then on the client, always in that order, so sections sharing either
// row run one after the other and see each other's committed inserts.
type ReservationStore struct {
	db  *sql.DB
	loc *time.Location
}

// NewReservationStore returns a store whose reserved_day column is computed
// in loc, the restaurant's zone.
func NewReservationStore(db *sql.DB, loc *time.Location) *ReservationStore {
	if loc == nil {
		loc = time.UTC
	}
	return &ReservationStore{db: db, loc: loc}
}

func (s *ReservationStore) Atomic(ctx context.Context, scope Scope, fn func(ctx context.Context, q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if scope.TableID != 0 {
		if err := lockRow(ctx, tx, "SELECT id FROM dining_tables WHERE id = ? FOR UPDATE", scope.TableID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lock table %d: %w", scope.TableID, ErrTableNotFound)
			}
			return fmt.Errorf("lock table %d: %w", scope.TableID, err)
		}
	}
	if scope.ClientID != 0 {
		if err := lockRow(ctx, tx, "SELECT id FROM clients WHERE id = ? FOR UPDATE", scope.ClientID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lock client %d: %w", scope.ClientID, ErrClientNotFound)
			}
			return fmt.Errorf("lock client %d: %w", scope.ClientID, err)
		}
	}

	if err := fn(ctx, &txQueries{tx: tx, loc: s.loc}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func lockRow(ctx context.Context, tx *sql.Tx, q string, id uint64) error {
	var got uint64
	return tx.QueryRowContext(ctx, q, id).Scan(&got)
}

type txQueries struct {
	tx  *sql.Tx
	loc *time.Location
}

const reservationColumns = `id, reserved_at, party_size, cost_cents, status, client_id, table_id, restaurant_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var r model.Reservation
	var status string
	if err := row.Scan(&r.ID, &r.At, &r.PartySize, &r.CostCents, &status,
		&r.ClientID, &r.TableID, &r.RestaurantID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.ReservationStatus(status)
	return &r, nil
}

// optional converts sql.ErrNoRows into a (nil, nil) lookup result.
func optional(r *model.Reservation, err error) (*model.Reservation, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (q *txQueries) ActiveReservationForTable(ctx context.Context, tableID uint64, day time.Time) (*model.Reservation, error) {
	row := q.tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE table_id = ? AND reserved_day = ? AND status = 'ACTIVE' LIMIT 1`,
		tableID, dayString(day, q.loc))
	return optional(scanReservation(row))
}

func (q *txQueries) ActiveReservationForClient(ctx context.Context, clientID uint64) (*model.Reservation, error) {
	row := q.tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE client_id = ? AND status = 'ACTIVE' LIMIT 1`, clientID)
	return optional(scanReservation(row))
}

func (q *txQueries) ReservationByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	row := q.tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return r, err
}

func (q *txQueries) CreateReservation(ctx context.Context, r *model.Reservation) error {
	res, err := q.tx.ExecContext(ctx,
		`INSERT INTO reservations (client_id, table_id, restaurant_id, reserved_at, reserved_day, party_size, cost_cents, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ClientID, r.TableID, r.RestaurantID, r.At.UTC(), dayString(r.At, q.loc), r.PartySize, r.CostCents, string(r.Status))
	if err != nil {
		return mapReservationInsert(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := scanReservation(q.tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*r = *stored
	return nil
}

func (q *txQueries) UpdateReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus) error {
	res, err := q.tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return mapReservationInsert(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (q *txQueries) Restaurant(ctx context.Context) (*model.Restaurant, error) {
	return scanRestaurant(q.tx.QueryRowContext(ctx, selectRestaurant))
}

func dayString(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}
