package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ReservationRepo serves the read side of reservations: lookups, filtered
// search and report data. Writes go through ReservationStore.
type ReservationRepo struct {
	db     *sql.DB
	cipher PhoneCipher
	loc    *time.Location
}

func NewReservationRepo(db *sql.DB, cipher PhoneCipher, loc *time.Location) *ReservationRepo {
	if loc == nil {
		loc = time.UTC
	}
	return &ReservationRepo{db: db, cipher: cipher, loc: loc}
}

// GetByID returns ErrReservationNotFound for unknown ids.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// ReservationFilter narrows Search. Zero values match everything; From and
// To are inclusive calendar days and Phone is an exact match. SkipPhones
// leaves ClientPhone empty instead of decrypting it.
type ReservationFilter struct {
	ID         uint64
	ClientName string
	Phone      string
	Day        time.Time
	From       time.Time
	To         time.Time
	Location   model.Location
	Size       model.SizeClass
	Status     model.ReservationStatus
	Limit      int
	Offset     int
	SkipPhones bool
}

const detailQuery = `SELECT r.id, r.reserved_at, r.party_size, r.cost_cents, r.status, r.client_id, r.table_id,
	r.restaurant_id, r.created_at, r.updated_at, c.name, c.phone_enc, t.code, t.size_class, t.location
	FROM reservations r
	JOIN clients c ON c.id = r.client_id
	JOIN dining_tables t ON t.id = r.table_id`

// GetDetail returns one reservation joined with its client and table.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (*model.ReservationDetail, error) {
	out, err := r.Search(ctx, ReservationFilter{ID: id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrReservationNotFound
	}
	return &out[0], nil
}

// Search returns reservation details ordered by reservation time. The phone
// filter matches the stored digest.
func (r *ReservationRepo) Search(ctx context.Context, f ReservationFilter) ([]model.ReservationDetail, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		where = append(where, cond)
		args = append(args, v)
	}
	if f.ID != 0 {
		add("r.id = ?", f.ID)
	}
	if phone := strings.TrimSpace(f.Phone); phone != "" {
		add("c.phone_hash = ?", r.cipher.Digest(phone))
	}
	if s := strings.TrimSpace(f.ClientName); s != "" {
		add("LOWER(c.name) LIKE ?", "%"+escapeLike(strings.ToLower(s))+"%")
	}
	if !f.Day.IsZero() {
		add("r.reserved_day = ?", dayString(f.Day, r.loc))
	}
	if !f.From.IsZero() {
		add("r.reserved_day >= ?", dayString(f.From, r.loc))
	}
	if !f.To.IsZero() {
		add("r.reserved_day <= ?", dayString(f.To, r.loc))
	}
	if f.Location != "" {
		add("t.location = ?", string(f.Location))
	}
	if f.Size != "" {
		add("t.size_class = ?", string(f.Size))
	}
	if f.Status != "" {
		add("r.status = ?", string(f.Status))
	}

	q := detailQuery
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY r.reserved_at, r.id"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ReservationDetail{}
	for rows.Next() {
		var (
			d          model.ReservationDetail
			status     string
			enc        string
			size, area string
		)
		if err := rows.Scan(&d.ID, &d.At, &d.PartySize, &d.CostCents, &status, &d.ClientID, &d.TableID,
			&d.RestaurantID, &d.CreatedAt, &d.UpdatedAt, &d.ClientName, &enc, &d.TableCode, &size, &area); err != nil {
			return nil, err
		}
		d.Status = model.ReservationStatus(status)
		d.TableSize, d.TableLocation = model.SizeClass(size), model.Location(area)
		if !f.SkipPhones {
			if d.ClientPhone, err = r.cipher.Decrypt(enc); err != nil {
				return nil, err
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
