package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// PhoneCipher encrypts phone numbers before they reach the database.
// Digest is a deterministic keyed hash used to match a phone in SQL without
// decrypting every row.
type PhoneCipher interface {
	Encrypt(phone string) (string, error)
	Decrypt(stored string) (string, error)
	Digest(phone string) string
}

// ClientRepo persists clients. Phones are stored encrypted next to their
// digest and decrypted on every read; a decryption failure fails the read.
type ClientRepo struct {
	db     *sql.DB
	cipher PhoneCipher
}

func NewClientRepo(db *sql.DB, cipher PhoneCipher) *ClientRepo {
	return &ClientRepo{db: db, cipher: cipher}
}

// Create inserts one client and returns it with its ID.
func (r *ClientRepo) Create(ctx context.Context, name, phone string) (*model.Client, error) {
	out, err := r.CreateMany(ctx, []model.Client{{Name: name, Phone: phone}})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// CreateMany inserts clients in one transaction; either all are stored or
// none.
func (r *ClientRepo) CreateMany(ctx context.Context, clients []model.Client) ([]model.Client, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	out := make([]model.Client, 0, len(clients))
	for _, c := range clients {
		c.Name = strings.TrimSpace(c.Name)
		c.Phone = strings.TrimSpace(c.Phone)
		if c.Name == "" || c.Phone == "" {
			return nil, fmt.Errorf("client name and phone are required")
		}
		enc, err := r.cipher.Encrypt(c.Phone)
		if err != nil {
			return nil, fmt.Errorf("encrypt phone: %w", err)
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO clients (name, phone_enc, phone_hash) VALUES (?, ?, ?)`,
			c.Name, enc, r.cipher.Digest(c.Phone))
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		c.ID = uint64(id)
		out = append(out, c)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

func (r *ClientRepo) scan(row rowScanner) (*model.Client, error) {
	var c model.Client
	var enc string
	if err := row.Scan(&c.ID, &c.Name, &enc, &c.CreatedAt); err != nil {
		return nil, err
	}
	phone, err := r.cipher.Decrypt(enc)
	if err != nil {
		return nil, fmt.Errorf("client %d: %w", c.ID, err)
	}
	c.Phone = phone
	return &c, nil
}

// GetByID returns ErrClientNotFound for unknown ids.
func (r *ClientRepo) GetByID(ctx context.Context, id uint64) (*model.Client, error) {
	c, err := r.scan(r.db.QueryRowContext(ctx,
		`SELECT id, name, phone_enc, created_at FROM clients WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	return c, err
}

// List returns clients ordered by name, optionally filtered by a case
// insensitive name substring.
func (r *ClientRepo) List(ctx context.Context, nameLike string, limit, offset int) ([]model.Client, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id, name, phone_enc, created_at FROM clients`
	args := []any{}
	if s := strings.TrimSpace(nameLike); s != "" {
		q += ` WHERE LOWER(name) LIKE ?`
		args = append(args, "%"+escapeLike(strings.ToLower(s))+"%")
	}
	q += ` ORDER BY name, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Client{}
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpgradePhones re-encrypts phones stored before digests existed and fills
// in their digest. It returns how many rows it rewrote and is a no-op once
// every row is current.
func (r *ClientRepo) UpgradePhones(ctx context.Context) (int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, phone_enc FROM clients WHERE phone_hash = ''`)
	if err != nil {
		return 0, err
	}
	type pending struct {
		id  uint64
		enc string
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.enc); err != nil {
			rows.Close()
			return 0, err
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for i, p := range todo {
		phone, err := r.cipher.Decrypt(p.enc)
		if err != nil {
			return i, fmt.Errorf("client %d: %w", p.id, err)
		}
		enc, err := r.cipher.Encrypt(phone)
		if err != nil {
			return i, fmt.Errorf("encrypt phone: %w", err)
		}
		if _, err := r.db.ExecContext(ctx,
			`UPDATE clients SET phone_enc = ?, phone_hash = ? WHERE id = ?`, enc, r.cipher.Digest(phone), p.id); err != nil {
			return i, err
		}
	}
	return len(todo), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
