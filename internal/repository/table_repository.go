package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// TableRepo persists dining tables.
type TableRepo struct{ db *sql.DB }

func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

const tableColumns = `id, code, size_class, min_capacity, max_capacity, location`

func scanTable(row rowScanner) (*model.Table, error) {
	var t model.Table
	var size, loc string
	if err := row.Scan(&t.ID, &t.Code, &size, &t.MinCapacity, &t.MaxCapacity, &loc); err != nil {
		return nil, err
	}
	t.Size, t.Location = model.SizeClass(size), model.Location(loc)
	return &t, nil
}

// GetByID returns ErrTableNotFound for unknown ids.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
	t, err := scanTable(r.db.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM dining_tables WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	return t, err
}

// TableFilter narrows List. Empty fields match everything.
type TableFilter struct {
	Size     model.SizeClass
	Location model.Location
}

// List returns tables ordered by code.
func (r *TableRepo) List(ctx context.Context, f TableFilter) ([]model.Table, error) {
	q := `SELECT ` + tableColumns + ` FROM dining_tables WHERE 1=1`
	var args []any
	if f.Size != "" {
		q += ` AND size_class = ?`
		args = append(args, string(f.Size))
	}
	if f.Location != "" {
		q += ` AND location = ?`
		args = append(args, string(f.Location))
	}
	q += ` ORDER BY code`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CountByLocation returns the number of tables per location, including
// locations that have none.
func (r *TableRepo) CountByLocation(ctx context.Context) (map[model.Location]int, error) {
	out := make(map[model.Location]int, len(model.Locations))
	for _, l := range model.Locations {
		out[l] = 0
	}
	rows, err := r.db.QueryContext(ctx, `SELECT location, COUNT(*) FROM dining_tables GROUP BY location`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var loc string
		var n int
		if err := rows.Scan(&loc, &n); err != nil {
			return nil, err
		}
		out[model.Location(loc)] = n
	}
	return out, rows.Err()
}

// BulkResult reports how many tables a bulk insert stored and skipped.
type BulkResult struct {
	Added   []model.Table `json:"added"`
	Skipped []string      `json:"skipped"`
}

// InsertMany stores tables in one transaction. Tables whose code already
// exists are skipped and listed in the result instead of failing the batch.
func (r *TableRepo) InsertMany(ctx context.Context, tables []model.Table) (BulkResult, error) {
	res := BulkResult{Added: []model.Table{}, Skipped: []string{}}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return BulkResult{}, fmt.Errorf("table %q: %w", t.Code, err)
		}
		out, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO dining_tables (code, size_class, min_capacity, max_capacity, location) VALUES (?, ?, ?, ?, ?)`,
			t.Code, string(t.Size), t.MinCapacity, t.MaxCapacity, string(t.Location))
		if err != nil {
			return BulkResult{}, err
		}
		if n, _ := out.RowsAffected(); n == 0 {
			res.Skipped = append(res.Skipped, t.Code)
			continue
		}
		id, err := out.LastInsertId()
		if err != nil {
			return BulkResult{}, err
		}
		t.ID = uint64(id)
		res.Added = append(res.Added, t)
	}
	if err := tx.Commit(); err != nil {
		return BulkResult{}, err
	}
	committed = true
	return res, nil
}

// NextSequence returns the next free numeric suffix for codes starting with
// prefix, e.g. 4 when TER-2-001..TER-2-003 exist.
func (r *TableRepo) NextSequence(ctx context.Context, prefix string) (int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code FROM dining_tables WHERE code LIKE ?`, escapeLike(prefix)+"%")
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	max := 0
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(code, prefix)); err == nil && n > max {
			max = n
		}
	}
	return max + 1, rows.Err()
}
