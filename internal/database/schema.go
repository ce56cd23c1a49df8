package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/iliyamo/restaurant-table-reservation/internal/log"
)

// schema creates every table the service needs. Statements are idempotent.
//
// reservations carries two generated columns that are NULL unless the row
// is ACTIVE. MySQL unique keys ignore NULLs, so uq_reservations_table_day
// allows one active reservation per table and calendar day and
// uq_reservations_active_client one active reservation per client, while
// cancelled rows never collide.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		singleton  TINYINT NOT NULL DEFAULT 1,
		name       VARCHAR(120) NOT NULL,
		address    VARCHAR(255) NOT NULL DEFAULT '',
		phone      VARCHAR(40)  NOT NULL DEFAULT '',
		opens_at   TIME NOT NULL,
		closes_at  TIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_restaurants_singleton (singleton),
		CONSTRAINT ck_restaurants_singleton CHECK (singleton = 1),
		CONSTRAINT ck_restaurants_hours CHECK (opens_at < closes_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS clients (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(120) NOT NULL,
		phone_enc  VARCHAR(255) NOT NULL,
		phone_hash CHAR(64) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY ix_clients_name (name),
		KEY ix_clients_phone_hash (phone_hash)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS dining_tables (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		code         VARCHAR(32) NOT NULL,
		size_class   ENUM('SMALL','MEDIUM','LARGE') NOT NULL,
		min_capacity INT NOT NULL,
		max_capacity INT NOT NULL,
		location     ENUM('TERRACE','WINDOW','GENERAL') NOT NULL,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_dining_tables_code (code),
		CONSTRAINT ck_dining_tables_capacity CHECK (min_capacity >= 1 AND min_capacity <= max_capacity)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		client_id     BIGINT UNSIGNED NOT NULL,
		table_id      BIGINT UNSIGNED NOT NULL,
		restaurant_id BIGINT UNSIGNED NOT NULL,
		reserved_at   DATETIME NOT NULL,
		reserved_day  DATE NOT NULL,
		party_size    INT NOT NULL,
		cost_cents    INT UNSIGNED NOT NULL DEFAULT 0,
		status        ENUM('ACTIVE','CANCELLED') NOT NULL DEFAULT 'ACTIVE',
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		active_day    DATE GENERATED ALWAYS AS (IF(status = 'ACTIVE', reserved_day, NULL)) STORED,
		active_client BIGINT UNSIGNED GENERATED ALWAYS AS (IF(status = 'ACTIVE', client_id, NULL)) STORED,
		UNIQUE KEY uq_reservations_table_day (table_id, active_day),
		UNIQUE KEY uq_reservations_active_client (active_client),
		KEY ix_reservations_day (reserved_day),
		CONSTRAINT fk_reservations_client FOREIGN KEY (client_id) REFERENCES clients (id),
		CONSTRAINT fk_reservations_table FOREIGN KEY (table_id) REFERENCES dining_tables (id),
		CONSTRAINT fk_reservations_restaurant FOREIGN KEY (restaurant_id) REFERENCES restaurants (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(190) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		role          ENUM('ADMIN','HOST') NOT NULL DEFAULT 'HOST',
		is_active     TINYINT(1) NOT NULL DEFAULT 1,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// column is added to tables created before it existed. MySQL has no
// ADD COLUMN IF NOT EXISTS, so presence is checked first.
type column struct {
	table, name, ddl string
}

var addedColumns = []column{
	{"clients", "phone_hash", `ALTER TABLE clients
		ADD COLUMN phone_hash CHAR(64) NOT NULL DEFAULT '' AFTER phone_enc,
		ADD KEY ix_clients_phone_hash (phone_hash)`},
}

// Migrate creates the schema if it does not exist yet and adds columns
// missing from older tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	for _, col := range addedColumns {
		var n int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM information_schema.columns
			 WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?`,
			col.table, col.name).Scan(&n)
		if err != nil {
			return fmt.Errorf("inspect %s.%s: %w", col.table, col.name, err)
		}
		if n > 0 {
			continue
		}
		if _, err := db.ExecContext(ctx, col.ddl); err != nil {
			return fmt.Errorf("add %s.%s: %w", col.table, col.name, err)
		}
		log.Info(ctx, "column added", slog.String("table", col.table), slog.String("column", col.name))
	}
	log.Info(ctx, "schema up to date", slog.Int("statements", len(schema)))
	return nil
}
