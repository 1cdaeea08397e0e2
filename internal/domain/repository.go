package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Storage keys of the three persisted records
const (
	SectionsKey         = "networth-sections"
	SnapshotsKey        = "networth-snapshots"
	PriceCacheRecordKey = "networth-price-cache"
)

// KeyValueStore is the generic string store the records are persisted in
type KeyValueStore interface {
	// Get returns the value stored under key; ok is false when the key is absent
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Delete removes key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error
}

// SectionRepository persists the live sections
type SectionRepository interface {
	// Load returns the persisted sections, or an empty list when the record is missing or corrupt
	Load(ctx context.Context) ([]Section, error)

	// Save replaces the persisted sections
	Save(ctx context.Context, sections []Section) error
}

// SnapshotRepository persists snapshots ordered ascending by date
type SnapshotRepository interface {
	// List returns every snapshot ascending by date
	List(ctx context.Context) ([]Snapshot, error)

	// Get returns the snapshot saved for date
	Get(ctx context.Context, date string) (*Snapshot, error)

	// Upsert replaces the snapshot with the same date or inserts it, keeping the order.
	// The read-modify-write is atomic with respect to other calls.
	Upsert(ctx context.Context, snap Snapshot) error

	// Delete removes the snapshot saved for date
	Delete(ctx context.Context, date string) error

	// ReplaceAll replaces every snapshot
	ReplaceAll(ctx context.Context, snaps []Snapshot) error
}

// PriceCacheRepository persists resolved prices
type PriceCacheRepository interface {
	// Get returns the entry stored under a key built by PriceCacheKey
	Get(ctx context.Context, key string) (PriceCacheEntry, bool)

	// Set stores price under the key of ticker and dateKey (empty for latest)
	Set(ctx context.Context, ticker string, price decimal.Decimal, dateKey string, fetchedAt time.Time) error

	// Len returns the number of cached prices
	Len(ctx context.Context) int

	// Clear removes every cached price
	Clear(ctx context.Context) error
}

// PriceSource is a remote source of daily price bars
type PriceSource interface {
	// Name identifies the source (and the route it uses) in logs and errors
	Name() string

	// HistoricalBars returns the daily bars of ticker between from and to, oldest first
	HistoricalBars(ctx context.Context, ticker string, from, to time.Time) ([]Bar, error)

	// Latest returns the most recent daily bar of ticker with the exchange metadata
	Latest(ctx context.Context, ticker string) (*LatestQuote, error)
}
