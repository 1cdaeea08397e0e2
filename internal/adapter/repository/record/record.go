// Package record stores the sections, snapshots and price cache as JSON
// documents in a generic key-value store. Missing or corrupt documents read
// back as empty collections.
package record

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/simaogato/networth-backend/internal/domain"
)

// load decodes the document stored under key into out.
// It reports false when the document is absent or cannot be decoded; out is
// then left untouched.
func load(ctx context.Context, store domain.KeyValueStore, logger *zap.SugaredLogger, key string, out any) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		logger.Warnw("corrupt record treated as empty", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

// save encodes v and stores it under key
func save(ctx context.Context, store domain.KeyValueStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
