package section

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/logger"
)

// PriceResolver resolves as-of prices for stock sections
type PriceResolver interface {
	ResolveAsOf(ctx context.Context, ticker, date string) domain.PriceResult
}

// RefreshResult is the outcome of a stock value refresh.
// Error is the inline marker shown next to the section when no price was found.
type RefreshResult struct {
	Section domain.Section   `json:"section"`
	Price   *decimal.Decimal `json:"price"`
	Error   string           `json:"error,omitempty"`
}

// SectionService owns the live sections. Every change goes through mutate,
// which applies it to a copy, persists the copy and only then publishes it.
type SectionService struct {
	SectionRepo domain.SectionRepository
	Prices      PriceResolver
	Logger      *zap.SugaredLogger
	Now         func() time.Time

	mu       sync.Mutex
	sections []domain.Section
	loaded   bool

	inflightMu sync.Mutex
	inflight   map[uuid.UUID]struct{}
}

// NewSectionService creates a new SectionService instance
func NewSectionService(sectionRepo domain.SectionRepository, prices PriceResolver, l *zap.SugaredLogger) *SectionService {
	return &SectionService{
		SectionRepo: sectionRepo,
		Prices:      prices,
		Logger:      logger.OrNop(l),
		Now:         time.Now,
		inflight:    make(map[uuid.UUID]struct{}),
	}
}

// ensureLoaded reads the persisted sections once. Callers hold mu.
func (s *SectionService) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	sections, err := s.SectionRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sections: %w", err)
	}
	s.sections = sections
	s.loaded = true
	return nil
}

// mutate applies fn to a copy of the live sections, persists the result and
// publishes it. Nothing changes when fn or the save fails.
func (s *SectionService) mutate(ctx context.Context, fn func([]domain.Section) ([]domain.Section, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	next, err := fn(domain.CloneSections(s.sections))
	if err != nil {
		return err
	}
	if err := s.SectionRepo.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save sections: %w", err)
	}
	s.sections = next
	return nil
}

// List returns a copy of the live sections in display order
func (s *SectionService) List(ctx context.Context) ([]domain.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return domain.CloneSections(s.sections), nil
}

// Get returns the live section with the given id
func (s *SectionService) Get(ctx context.Context, id uuid.UUID) (*domain.Section, error) {
	sections, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(sections, id)
	if i < 0 {
		return nil, domain.ErrSectionNotFound
	}
	return &sections[i], nil
}

// Total returns the net worth of the live sections
func (s *SectionService) Total(ctx context.Context) (decimal.Decimal, error) {
	sections, err := s.List(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.ComputeTotal(sections), nil
}

// Add appends an empty Cash section
func (s *SectionService) Add(ctx context.Context) (*domain.Section, error) {
	sec := domain.NewSection(s.Now())
	err := s.mutate(ctx, func(sections []domain.Section) ([]domain.Section, error) {
		return append(sections, sec), nil
	})
	if err != nil {
		return nil, err
	}
	return &sec, nil
}

// Update applies a partial update to one section
// Logic: only the fields present in the patch change; share counts must not be negative
// and fields foreign to the asset type are rejected
func (s *SectionService) Update(ctx context.Context, id uuid.UUID, patch domain.SectionPatch) (*domain.Section, error) {
	var updated domain.Section
	err := s.mutate(ctx, func(sections []domain.Section) ([]domain.Section, error) {
		i := indexOf(sections, id)
		if i < 0 {
			return nil, domain.ErrSectionNotFound
		}
		if err := sections[i].Apply(patch, s.Now()); err != nil {
			return nil, err
		}
		updated = sections[i]
		return sections, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Edit applies patch and, when it changes the ticker or the shares of a
// stock section, refreshes the value at today's price. A refresh already in
// flight for the section is left to finish on its own.
func (s *SectionService) Edit(ctx context.Context, id uuid.UUID, patch domain.SectionPatch) (*RefreshResult, error) {
	updated, err := s.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if !patch.TouchesStock() {
		return &RefreshResult{Section: *updated}, nil
	}

	res, err := s.Refresh(ctx, id, "")
	if errors.Is(err, domain.ErrRefreshInProgress) {
		return &RefreshResult{Section: *updated}, nil
	}
	return res, err
}

// ChangeType switches the asset type of one section
func (s *SectionService) ChangeType(ctx context.Context, id uuid.UUID, assetType domain.AssetType) (*domain.Section, error) {
	var updated domain.Section
	err := s.mutate(ctx, func(sections []domain.Section) ([]domain.Section, error) {
		i := indexOf(sections, id)
		if i < 0 {
			return nil, domain.ErrSectionNotFound
		}
		if err := sections[i].ChangeType(assetType, s.Now()); err != nil {
			return nil, err
		}
		updated = sections[i]
		return sections, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Remove deletes one section
func (s *SectionService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, func(sections []domain.Section) ([]domain.Section, error) {
		i := indexOf(sections, id)
		if i < 0 {
			return nil, domain.ErrSectionNotFound
		}
		return append(sections[:i], sections[i+1:]...), nil
	})
}

// ReplaceAll replaces every live section
func (s *SectionService) ReplaceAll(ctx context.Context, sections []domain.Section) error {
	for i := range sections {
		if err := sections[i].Validate(); err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
	}
	replacement := domain.CloneSections(sections)
	return s.mutate(ctx, func([]domain.Section) ([]domain.Section, error) {
		return replacement, nil
	})
}

// Refresh recomputes the value of a live stock section from its as-of price
// on date (today when empty)
// Logic:
//   - No ticker or zero shares: value becomes 0
//   - Price found: value = price x shares
//   - No price: value becomes 0 and the failure is returned as the inline marker
//
// A second refresh of the same section while one is in flight fails with
// ErrRefreshInProgress. A started refresh is applied even when the caller's
// context is cancelled.
func (s *SectionService) Refresh(ctx context.Context, id uuid.UUID, date string) (*RefreshResult, error) {
	ctx = context.WithoutCancel(ctx)
	day, err := domain.DateOrToday(date, s.Now())
	if err != nil {
		return nil, err
	}
	release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// The price lookup runs without holding the section lock.
	value, price, marker := s.value(ctx, *current, day)

	var result RefreshResult
	err = s.mutate(ctx, func(sections []domain.Section) ([]domain.Section, error) {
		i := indexOf(sections, id)
		if i < 0 {
			return nil, domain.ErrSectionNotFound
		}
		setValue(&sections[i], value, s.Now())
		result = RefreshResult{Section: sections[i], Price: price, Error: marker}
		return sections, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshBuffer refreshes one section of an edit buffer the same way Refresh
// does for live sections. The buffer is not modified; the refreshed copy is
// returned.
func (s *SectionService) RefreshBuffer(ctx context.Context, buffer []domain.Section, id uuid.UUID, date string) ([]domain.Section, *RefreshResult, error) {
	ctx = context.WithoutCancel(ctx)
	day, err := domain.DateOrToday(date, s.Now())
	if err != nil {
		return nil, nil, err
	}
	out := domain.CloneSections(buffer)
	i := indexOf(out, id)
	if i < 0 {
		return nil, nil, domain.ErrSectionNotFound
	}
	release, err := s.acquire(id)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	value, price, marker := s.value(ctx, out[i], day)
	setValue(&out[i], value, s.Now())
	return out, &RefreshResult{Section: out[i], Price: price, Error: marker}, nil
}

// value computes the stock value of sec on day
func (s *SectionService) value(ctx context.Context, sec domain.Section, day string) (decimal.Decimal, *decimal.Decimal, string) {
	if !sec.IsStock() {
		return sec.ValueDollars, nil, ""
	}
	if !sec.NeedsPrice() {
		return decimal.Zero, nil, ""
	}

	res := s.Prices.ResolveAsOf(ctx, sec.Ticker(), day)
	if !res.Found() {
		s.Logger.Warnw("stock refresh failed", "section", sec.ID, "ticker", sec.Ticker(), "date", day, "error", res.Error)
		marker := res.Error
		if marker == "" {
			marker = "Error"
		}
		return decimal.Zero, nil, marker
	}
	return res.Price.Mul(sec.Shares), res.Price, ""
}

func setValue(sec *domain.Section, value decimal.Decimal, now time.Time) {
	if !sec.IsStock() {
		return
	}
	sec.ValueDollars = value
	sec.PriceStale = false
	sec.UpdatedAt = now
}

// acquire marks a refresh of id as in flight
func (s *SectionService) acquire(id uuid.UUID) (func(), error) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()

	if _, busy := s.inflight[id]; busy {
		return nil, domain.ErrRefreshInProgress
	}
	s.inflight[id] = struct{}{}
	return func() {
		s.inflightMu.Lock()
		delete(s.inflight, id)
		s.inflightMu.Unlock()
	}, nil
}

func indexOf(sections []domain.Section, id uuid.UUID) int {
	for i := range sections {
		if sections[i].ID == id {
			return i
		}
	}
	return -1
}
