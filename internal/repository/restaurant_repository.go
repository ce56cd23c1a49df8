package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// RestaurantRepo reads and writes the single `restaurants` row.
type RestaurantRepo struct{ db *sql.DB }

func NewRestaurantRepo(db *sql.DB) *RestaurantRepo { return &RestaurantRepo{db: db} }

const selectRestaurant = `SELECT id, name, address, phone, opens_at, closes_at FROM restaurants WHERE singleton = 1`

func scanRestaurant(row rowScanner) (*model.Restaurant, error) {
	var r model.Restaurant
	err := row.Scan(&r.ID, &r.Name, &r.Address, &r.Phone, &r.Opens, &r.Closes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRestaurantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Get returns the restaurant or ErrRestaurantNotFound.
func (r *RestaurantRepo) Get(ctx context.Context) (*model.Restaurant, error) {
	return scanRestaurant(r.db.QueryRowContext(ctx, selectRestaurant))
}

// Save creates the restaurant or overwrites its profile and hours.
func (r *RestaurantRepo) Save(ctx context.Context, rest model.Restaurant) (*model.Restaurant, error) {
	if err := rest.Validate(); err != nil {
		return nil, err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO restaurants (singleton, name, address, phone, opens_at, closes_at)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE name = VALUES(name), address = VALUES(address), phone = VALUES(phone),
		   opens_at = VALUES(opens_at), closes_at = VALUES(closes_at)`,
		rest.Name, rest.Address, rest.Phone, rest.Opens, rest.Closes)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx)
}

// UpdateHours changes opening and closing time. Both must satisfy
// opens < closes.
func (r *RestaurantRepo) UpdateHours(ctx context.Context, opens, closes model.TimeOfDay) (*model.Restaurant, error) {
	if err := (model.Restaurant{Opens: opens, Closes: closes}).Validate(); err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE restaurants SET opens_at = ?, closes_at = ? WHERE singleton = 1`, opens, closes)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Same hours as before also report zero rows; tell the cases apart.
		if _, err := r.Get(ctx); err != nil {
			return nil, err
		}
	}
	return r.Get(ctx)
}
