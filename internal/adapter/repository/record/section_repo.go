package record

import (
	"context"

	"go.uber.org/zap"

	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/logger"
)

// sectionRepository implements domain.SectionRepository
type sectionRepository struct {
	store  domain.KeyValueStore
	logger *zap.SugaredLogger
}

// NewSectionRepository creates a new section repository
func NewSectionRepository(store domain.KeyValueStore, l *zap.SugaredLogger) domain.SectionRepository {
	return &sectionRepository{store: store, logger: logger.OrNop(l)}
}

// Load retrieves the live sections
func (r *sectionRepository) Load(ctx context.Context) ([]domain.Section, error) {
	var sections []domain.Section
	ok, err := load(ctx, r.store, r.logger, domain.SectionsKey, &sections)
	if err != nil {
		return nil, err
	}
	if !ok || sections == nil {
		return []domain.Section{}, nil
	}
	return sections, nil
}

// Save replaces the live sections
func (r *sectionRepository) Save(ctx context.Context, sections []domain.Section) error {
	if sections == nil {
		sections = []domain.Section{}
	}
	return save(ctx, r.store, domain.SectionsKey, sections)
}
