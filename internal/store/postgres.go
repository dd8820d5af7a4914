package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Backend = (*PostgresBackend)(nil)

// PostgresBackend keeps the namespace in the kv_store table.
type PostgresBackend struct {
	db *pgxpool.Pool
}

func NewPostgresBackend(ctx context.Context, db *pgxpool.Pool) (*PostgresBackend, error) {
	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv_store (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	); err != nil {
		return nil, fmt.Errorf("create kv_store table: %w", err)
	}

	return &PostgresBackend{
		db: db,
	}, nil
}

func (p *PostgresBackend) Read(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.
		QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1;`, key).
		Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (p *PostgresBackend) Write(ctx context.Context, key, value string) error {
	_, err := p.db.Exec(
		ctx,
		`
			INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now();`,
		key, value,
	)
	return err
}

func (p *PostgresBackend) Clear(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `DELETE FROM kv_store;`)
	return err
}

func (p *PostgresBackend) Close() error {
	p.db.Close() // blocking operation
	return nil
}
