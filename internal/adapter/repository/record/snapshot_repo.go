package record

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/logger"
)

// snapshotRepository implements domain.SnapshotRepository.
// Writers are serialized so that a read-modify-write of the snapshot list
// never interleaves with another one.
type snapshotRepository struct {
	store  domain.KeyValueStore
	logger *zap.SugaredLogger
	mu     sync.Mutex
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(store domain.KeyValueStore, l *zap.SugaredLogger) domain.SnapshotRepository {
	return &snapshotRepository{store: store, logger: logger.OrNop(l)}
}

// List retrieves every snapshot ascending by date
func (r *snapshotRepository) List(ctx context.Context) ([]domain.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(ctx)
}

func (r *snapshotRepository) list(ctx context.Context) ([]domain.Snapshot, error) {
	var snaps []domain.Snapshot
	ok, err := load(ctx, r.store, r.logger, domain.SnapshotsKey, &snaps)
	if err != nil {
		return nil, err
	}
	if !ok || snaps == nil {
		return []domain.Snapshot{}, nil
	}
	domain.SortSnapshots(snaps)
	return snaps, nil
}

// Get retrieves the snapshot saved for date
func (r *snapshotRepository) Get(ctx context.Context, date string) (*domain.Snapshot, error) {
	snaps, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	snap, ok := domain.FindSnapshot(snaps, date)
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return &snap, nil
}

// Upsert replaces or inserts the snapshot for its date and persists the sorted list
func (r *snapshotRepository) Upsert(ctx context.Context, snap domain.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snaps, err := r.list(ctx)
	if err != nil {
		return err
	}
	return save(ctx, r.store, domain.SnapshotsKey, domain.UpsertSnapshot(snaps, snap.Clone()))
}

// Delete removes the snapshot saved for date
func (r *snapshotRepository) Delete(ctx context.Context, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snaps, err := r.list(ctx)
	if err != nil {
		return err
	}

	kept := make([]domain.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if s.Date != date {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(snaps) {
		return domain.ErrSnapshotNotFound
	}
	return save(ctx, r.store, domain.SnapshotsKey, kept)
}

// ReplaceAll replaces every snapshot. Duplicate dates keep the last entry.
func (r *snapshotRepository) ReplaceAll(ctx context.Context, snaps []domain.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.Snapshot{}
	for _, s := range snaps {
		out = domain.UpsertSnapshot(out, s.Clone())
	}
	return save(ctx, r.store, domain.SnapshotsKey, out)
}
