package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// OneTimeCodeRepository provides PostgreSQL-backed storage for short-lived
// values such as one-time codes. It satisfies ttlstore.Store.
type OneTimeCodeRepository struct {
	pool *Pool
}

// NewOneTimeCodeRepository creates a new PostgreSQL one-time code repository
func NewOneTimeCodeRepository(pool *Pool) *OneTimeCodeRepository {
	return &OneTimeCodeRepository{pool: pool}
}

// Set stores value under key until ttl elapses, replacing any previous value
func (r *OneTimeCodeRepository) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	query := `
		INSERT INTO one_time_codes (code_key, value, created_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (code_key) DO UPDATE SET
			value = EXCLUDED.value,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`

	if _, err := r.pool.Exec(ctx, query, key, value, time.Now().Add(ttl)); err != nil {
		return wrapStoreError("save one-time code", err)
	}
	return nil
}

// Get returns the value for key; ok is false if missing or expired
func (r *OneTimeCodeRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		"SELECT value FROM one_time_codes WHERE code_key = $1 AND expires_at > NOW()", key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapStoreError("get one-time code", err)
	}
	return value, true, nil
}

// Take atomically returns and removes the value for key
func (r *OneTimeCodeRepository) Take(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		"DELETE FROM one_time_codes WHERE code_key = $1 AND expires_at > NOW() RETURNING value", key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapStoreError("take one-time code", err)
	}
	return value, true, nil
}

// Delete removes key
func (r *OneTimeCodeRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM one_time_codes WHERE code_key = $1", key); err != nil {
		return wrapStoreError("delete one-time code", err)
	}
	return nil
}

// DeleteExpired removes all expired codes and returns the count deleted
func (r *OneTimeCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM one_time_codes WHERE expires_at <= NOW()")
	if err != nil {
		return 0, wrapStoreError("delete expired one-time codes", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
