package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Postgres keeps values in a single kv_entries table.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres creates the backing table when it does not exist yet.
func NewPostgres(ctx context.Context, db *sqlx.DB) (*Postgres, error) {
	if _, err := db.ExecContext(ctx, createTableQuery); err != nil {
		return nil, fmt.Errorf("create kv_entries: %w", err)
	}
	return &Postgres{db: db}, nil
}

const createTableQuery = `
CREATE TABLE IF NOT EXISTS kv_entries (
    key        text PRIMARY KEY,
    value      bytea NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
)
`

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.GetContext(ctx, &value, getQuery, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

const getQuery = `SELECT value FROM kv_entries WHERE key = $1`

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, upsertQuery, key, value)
	return err
}

const upsertQuery = `
INSERT INTO kv_entries (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`

func (p *Postgres) Update(ctx context.Context, key string, fn UpdateFunc) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The advisory lock covers the first write of a key, where FOR UPDATE has no row to lock.
	if _, err := tx.ExecContext(ctx, lockKeyQuery, key); err != nil {
		return err
	}

	var current []byte
	err = tx.GetContext(ctx, &current, getForUpdateQuery, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, upsertQuery, key, next); err != nil {
		return err
	}
	return tx.Commit()
}

const lockKeyQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

const getForUpdateQuery = `SELECT value FROM kv_entries WHERE key = $1 FOR UPDATE`

func (p *Postgres) Close() error {
	return p.db.Close()
}
