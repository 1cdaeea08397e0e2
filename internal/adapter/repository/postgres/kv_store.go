package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/networth-backend/internal/domain"
)

// kvStore implements domain.KeyValueStore on the kv_records table
type kvStore struct {
	db *DB
}

// NewKeyValueStore creates a new key-value store backed by PostgreSQL
func NewKeyValueStore(db *DB) domain.KeyValueStore {
	return &kvStore{db: db}
}

// Get retrieves the value stored under key
func (s *kvStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := `
		SELECT value
		FROM kv_records
		WHERE key = $1
	`

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get record %s: %w", key, err)
	}

	return value, true, nil
}

// Set stores value under key, replacing any previous value
func (s *kvStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_records (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set record %s: %w", key, err)
	}

	return nil
}

// Delete removes key
func (s *kvStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_records WHERE key = $1`

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}

	return nil
}
