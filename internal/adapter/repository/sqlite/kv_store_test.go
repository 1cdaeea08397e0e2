package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "networth.db")

	store, err := NewKeyValueStore(path)
	require.NoError(t, err)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "networth-sections", `[]`))
	require.NoError(t, store.Set(ctx, "networth-sections", `[{"id":"x"}]`))

	value, ok, err := store.Get(ctx, "networth-sections")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"x"}]`, value)

	require.NoError(t, store.Delete(ctx, "networth-sections"))
	require.NoError(t, store.Delete(ctx, "networth-sections"))
	_, ok, err = store.Get(ctx, "networth-sections")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Close())
}

func TestKeyValueStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "networth.db")

	store, err := NewKeyValueStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "networth-price-cache", `{"AAPL":{"price":1}}`))
	require.NoError(t, store.Close())

	reopened, err := NewKeyValueStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get(ctx, "networth-price-cache")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"AAPL":{"price":1}}`, value)
}
