package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/harel159/email-automation-system/internal/db"
)

type Repository struct{ db db.DBTX }

func New(pg db.DBTX) *Repository { return &Repository{db: pg} }

func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Repository) Upsert(ctx context.Context, key string, value string, secret bool) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO app_settings (key, value, is_secret, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, is_secret = EXCLUDED.is_secret, updated_at = NOW()`,
		key, value, secret)
	return err
}
