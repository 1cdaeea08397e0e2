package record

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/logger"
)

// priceCacheRepository implements domain.PriceCacheRepository.
// The cache is one flat document mapping cache keys to entries.
type priceCacheRepository struct {
	store  domain.KeyValueStore
	logger *zap.SugaredLogger
	mu     sync.Mutex
}

// NewPriceCacheRepository creates a new price cache repository
func NewPriceCacheRepository(store domain.KeyValueStore, l *zap.SugaredLogger) domain.PriceCacheRepository {
	return &priceCacheRepository{store: store, logger: logger.OrNop(l)}
}

func (r *priceCacheRepository) entries(ctx context.Context) map[string]domain.PriceCacheEntry {
	var entries map[string]domain.PriceCacheEntry
	ok, err := load(ctx, r.store, r.logger, domain.PriceCacheRecordKey, &entries)
	if err != nil {
		r.logger.Warnw("price cache unreadable, treating as empty", "error", err)
	}
	if !ok || entries == nil {
		return map[string]domain.PriceCacheEntry{}
	}
	return entries
}

// Get retrieves the cached entry for key
func (r *priceCacheRepository) Get(ctx context.Context, key string) (domain.PriceCacheEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries(ctx)[key]
	return entry, ok
}

// Set stores price under the key of ticker and dateKey
func (r *priceCacheRepository) Set(ctx context.Context, ticker string, price decimal.Decimal, dateKey string, fetchedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.entries(ctx)
	entries[domain.PriceCacheKey(ticker, dateKey)] = domain.PriceCacheEntry{Price: price, FetchedAt: fetchedAt}
	return save(ctx, r.store, domain.PriceCacheRecordKey, entries)
}

// Len returns the number of cached prices
func (r *priceCacheRepository) Len(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries(ctx))
}

// Clear removes every cached price
func (r *priceCacheRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(ctx, domain.PriceCacheRecordKey)
}
