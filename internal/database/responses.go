package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marquee/marquee/internal/cache"
)

// ResponseStore persists provider responses in the provider_responses table.
type ResponseStore struct {
	db *sql.DB
}

var _ cache.Store = (*ResponseStore)(nil)

// NewResponseStore creates a store over a migrated database.
func NewResponseStore(db *DB) *ResponseStore {
	return &ResponseStore{db: db.Conn()}
}

// GetEntry returns the stored entry for key, or nil when there is none. Expiry
// is left to the caller.
func (s *ResponseStore) GetEntry(ctx context.Context, key string) (*cache.Entry, error) {
	var (
		body      []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT body, expires_at FROM provider_responses WHERE key = ?`, key,
	).Scan(&body, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get response %q: %w", key, err)
	}

	return &cache.Entry{
		Key:       key,
		Value:     body,
		ExpiresAt: time.UnixMilli(expiresAt),
	}, nil
}

// PutEntry inserts or replaces the entry for entry.Key.
func (s *ResponseStore) PutEntry(ctx context.Context, entry cache.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO provider_responses (key, body, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, expires_at = excluded.expires_at`,
		entry.Key, entry.Value, entry.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to store response %q: %w", entry.Key, err)
	}
	return nil
}

// DeleteExpired removes every entry stale at now and returns how many were removed.
func (s *ResponseStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM provider_responses WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired responses: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored entries, expired or not.
func (s *ResponseStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM provider_responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return n, nil
}
