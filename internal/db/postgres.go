package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 5
	defaultConnLifetime = time.Hour
	defaultConnIdleTime = 30 * time.Minute
	defaultPingTimeout  = 5 * time.Second
)

// NewPostgres creates a pgx/stdlib backed *sql.DB pool and validates the connection.
func NewPostgres(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("db: empty DSN")
	}

	pool, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	pool.SetMaxOpenConns(defaultMaxOpenConns)
	pool.SetMaxIdleConns(defaultMaxIdleConns)
	pool.SetConnMaxLifetime(defaultConnLifetime)
	pool.SetConnMaxIdleTime(defaultConnIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS cards (
		id BIGSERIAL PRIMARY KEY,
		card_id TEXT UNIQUE NOT NULL,
		owner_name TEXT NOT NULL DEFAULT '',
		plate_number TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id BIGSERIAL PRIMARY KEY,
		card_id TEXT NOT NULL,
		plate_number TEXT NOT NULL DEFAULT '',
		slot_number INT NOT NULL,
		entry_time TIMESTAMPTZ NOT NULL,
		exit_time TIMESTAMPTZ,
		fee BIGINT NOT NULL DEFAULT 0,
		payment_status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_open_card_idx ON sessions (card_id) WHERE exit_time IS NULL`,
	`CREATE TABLE IF NOT EXISTS slots (
		slot_number INT PRIMARY KEY,
		is_occupied BOOLEAN NOT NULL DEFAULT FALSE,
		current_session_id BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS operators (
		id BIGSERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS gate_events (
		id BIGSERIAL PRIMARY KEY,
		device_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		frame_type TEXT NOT NULL,
		payload JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates tables on first start and seeds the slot pool 1..totalSlots.
// Existing slot rows are never touched, so resizing the pool down requires a manual
// migration.
func EnsureSchema(ctx context.Context, pool *sql.DB, totalSlots int) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: ensure schema: %w", err)
		}
	}

	for i := 1; i <= totalSlots; i++ {
		if _, err := pool.ExecContext(ctx,
			`INSERT INTO slots (slot_number) VALUES ($1) ON CONFLICT (slot_number) DO NOTHING`, i,
		); err != nil {
			return fmt.Errorf("db: seed slot %d: %w", i, err)
		}
	}
	return nil
}
