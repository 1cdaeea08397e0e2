package snapshot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/logger"
)

// SectionLister provides the live sections a snapshot is built from by default
type SectionLister interface {
	List(ctx context.Context) ([]domain.Section, error)
}

// PriceResolver resolves as-of prices for stock sections
type PriceResolver interface {
	ResolveAsOf(ctx context.Context, ticker, date string) domain.PriceResult
}

// SnapshotService builds, lists and deletes snapshots
type SnapshotService struct {
	SnapshotRepo domain.SnapshotRepository
	Sections     SectionLister
	Prices       PriceResolver
	Logger       *zap.SugaredLogger
	Now          func() time.Time
}

// NewSnapshotService creates a new SnapshotService instance
func NewSnapshotService(snapshotRepo domain.SnapshotRepository, sections SectionLister, prices PriceResolver, l *zap.SugaredLogger) *SnapshotService {
	return &SnapshotService{
		SnapshotRepo: snapshotRepo,
		Sections:     sections,
		Prices:       prices,
		Logger:       logger.OrNop(l),
		Now:          time.Now,
	}
}

// Save snapshots the given sections for date (today when empty), or the
// live sections when sections is nil
// Logic:
//   - Work on a deep copy; the caller's sections are never modified
//   - Every stock section with a ticker and shares is revalued at the as-of price of date,
//     one lookup at a time
//   - A stock whose price cannot be resolved keeps its prior value and is marked stale
//   - The snapshot replaces any snapshot already saved for the same date
//
// A save that has started always runs to completion, even when the caller's
// context is cancelled.
func (s *SnapshotService) Save(ctx context.Context, date string, sections []domain.Section) (*domain.Snapshot, error) {
	ctx = context.WithoutCancel(ctx)
	day, err := domain.DateOrToday(date, s.Now())
	if err != nil {
		return nil, err
	}

	if sections == nil {
		if sections, err = s.Sections.List(ctx); err != nil {
			return nil, err
		}
	}
	for i := range sections {
		if err := sections[i].Validate(); err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
	}

	secs := domain.CloneSections(sections)
	for i := range secs {
		if !secs[i].NeedsPrice() {
			continue
		}
		res := s.Prices.ResolveAsOf(ctx, secs[i].Ticker(), day)
		if !res.Found() {
			s.Logger.Warnw("keeping prior value for stock section",
				"date", day, "ticker", secs[i].Ticker(), "error", res.Error)
			secs[i].PriceStale = true
			continue
		}
		secs[i].ValueDollars = res.Price.Mul(secs[i].Shares)
		secs[i].PriceStale = false
	}
	snap := domain.Snapshot{
		Date:          day,
		TotalNetWorth: domain.ComputeTotal(secs),
		Sections:      secs,
		SavedAt:       s.Now().UTC(),
	}
	if err := s.SnapshotRepo.Upsert(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.Logger.Infow("snapshot saved", "date", day, "total", snap.TotalNetWorth.String(), "sections", len(secs))
	return &snap, nil
}

// List returns every snapshot ascending by date
func (s *SnapshotService) List(ctx context.Context) ([]domain.Snapshot, error) {
	return s.SnapshotRepo.List(ctx)
}

// Get returns the snapshot saved for date
func (s *SnapshotService) Get(ctx context.Context, date string) (*domain.Snapshot, error) {
	day, err := domain.ParseDate(date)
	if err != nil {
		return nil, err
	}
	return s.SnapshotRepo.Get(ctx, day)
}

// Latest returns the most recent snapshot
func (s *SnapshotService) Latest(ctx context.Context) (*domain.Snapshot, error) {
	snaps, err := s.SnapshotRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	latest, ok := domain.LatestSnapshot(snaps)
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return &latest, nil
}

// Delete removes the snapshot saved for date. Nothing is removed unless
// confirm is set.
func (s *SnapshotService) Delete(ctx context.Context, date string, confirm bool) error {
	day, err := domain.ParseDate(date)
	if err != nil {
		return err
	}
	if !confirm {
		return domain.ErrConfirmationRequired
	}
	if err := s.SnapshotRepo.Delete(ctx, day); err != nil {
		return err
	}
	s.Logger.Infow("snapshot deleted", "date", day)
	return nil
}
