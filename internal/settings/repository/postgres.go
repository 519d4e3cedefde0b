package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the table used by Postgres.
const Schema = `CREATE TABLE IF NOT EXISTS phonemailer_settings (
	scope      TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (scope, key)
)`

const (
	getSettingSQL    = `SELECT value FROM phonemailer_settings WHERE scope = $1 AND key = $2`
	upsertSettingSQL = `INSERT INTO phonemailer_settings (scope, key, value) VALUES ($1, $2, $3)
ON CONFLICT (scope, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// DB is the subset of *pgxpool.Pool used by Postgres.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres stores settings in the phonemailer_settings table.
type Postgres struct{ db DB }

func NewPostgres(db DB) *Postgres { return &Postgres{db: db} }

// Migrate creates the settings table when missing.
func (r *Postgres) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("settings postgres: migrate: %w", err)
	}
	return nil
}

func (r *Postgres) Get(ctx context.Context, scope, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(ctx, getSettingSQL, scope, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("settings postgres: get %s/%s: %w", scope, key, err)
	}
	return value, true, nil
}

func (r *Postgres) Upsert(ctx context.Context, scope, key, value string) error {
	if _, err := r.db.Exec(ctx, upsertSettingSQL, scope, key, value); err != nil {
		return fmt.Errorf("settings postgres: upsert %s/%s: %w", scope, key, err)
	}
	return nil
}
