package display

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/networth-backend/internal/domain"
)

// SectionLister provides the live sections
type SectionLister interface {
	List(ctx context.Context) ([]domain.Section, error)
}

// DisplayService picks the net worth shown in the header for a view
type DisplayService struct {
	SnapshotRepo domain.SnapshotRepository
	Sections     SectionLister
}

// NewDisplayService creates a new DisplayService instance
func NewDisplayService(snapshotRepo domain.SnapshotRepository, sections SectionLister) *DisplayService {
	return &DisplayService{
		SnapshotRepo: snapshotRepo,
		Sections:     sections,
	}
}

// Total returns the total to display for view. It reads only.
// Logic:
//   - Editing the current or a historical snapshot: live total of the edit buffer
//   - Viewing current: latest snapshot total, 0 without snapshots
//   - Viewing a snapshot: that snapshot's total, 0 when it does not exist
//   - New page and history page: total of the live sections
func (s *DisplayService) Total(ctx context.Context, view domain.View) (decimal.Decimal, error) {
	switch v := view.(type) {
	case domain.EditingCurrent:
		return domain.ComputeTotal(v.Buffer), nil
	case domain.EditingSnapshot:
		return domain.ComputeTotal(v.Buffer), nil
	case domain.ViewingCurrent:
		snaps, err := s.SnapshotRepo.List(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		latest, ok := domain.LatestSnapshot(snaps)
		if !ok {
			return decimal.Zero, nil
		}
		return latest.TotalNetWorth, nil
	case domain.ViewingSnapshot:
		snap, err := s.SnapshotRepo.Get(ctx, v.Date)
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			return decimal.Zero, nil
		}
		if err != nil {
			return decimal.Zero, err
		}
		return snap.TotalNetWorth, nil
	case domain.EditingNew, domain.ViewingHistory:
		sections, err := s.Sections.List(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return domain.ComputeTotal(sections), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported view %T", view)
	}
}
