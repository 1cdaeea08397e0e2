package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/logger"
)

// SectionStore reads and replaces the live sections
type SectionStore interface {
	List(ctx context.Context) ([]domain.Section, error)
	ReplaceAll(ctx context.Context, sections []domain.Section) error
}

// ImportSummary reports what an import replaced
type ImportSummary struct {
	Sections  int `json:"sections"`
	Snapshots int `json:"snapshots"`
}

// TransferService exports and imports the whole data set
type TransferService struct {
	Sections     SectionStore
	SnapshotRepo domain.SnapshotRepository
	Logger       *zap.SugaredLogger
	Now          func() time.Time
}

// NewTransferService creates a new TransferService instance
func NewTransferService(sections SectionStore, snapshotRepo domain.SnapshotRepository, l *zap.SugaredLogger) *TransferService {
	return &TransferService{
		Sections:     sections,
		SnapshotRepo: snapshotRepo,
		Logger:       logger.OrNop(l),
		Now:          time.Now,
	}
}

// Export returns the live sections and every snapshot as one document
func (s *TransferService) Export(ctx context.Context) (*domain.ExportDocument, error) {
	sections, err := s.Sections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	snaps, err := s.SnapshotRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return &domain.ExportDocument{
		Version:    domain.ExportVersion,
		ExportedAt: s.Now().UTC(),
		Sections:   sections,
		Snapshots:  snaps,
	}, nil
}

// WriteExport writes the pretty-printed export document to w and returns the
// file name it should be downloaded as
func (s *TransferService) WriteExport(ctx context.Context, w io.Writer) (string, error) {
	doc, err := s.Export(ctx)
	if err != nil {
		return "", err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode export: %w", err)
	}
	return domain.ExportFileName(doc.ExportedAt), nil
}

// Import replaces the live sections and every snapshot with the content of an
// export document
// Logic:
//   - Invalid JSON, or malformed sections or snapshots, fail with ErrInvalidImport and change nothing
//   - A sections or snapshots field that is missing or not an array imports as empty
//   - Sections without an id get a fresh one
func (s *TransferService) Import(ctx context.Context, data []byte) (*ImportSummary, error) {
	sections, snaps, err := decode(data)
	if err != nil {
		return nil, err
	}

	previous, err := s.Sections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	if err := s.Sections.ReplaceAll(ctx, sections); err != nil {
		return nil, fmt.Errorf("failed to replace sections: %w", err)
	}
	if err := s.SnapshotRepo.ReplaceAll(ctx, snaps); err != nil {
		if rerr := s.Sections.ReplaceAll(ctx, previous); rerr != nil {
			s.Logger.Errorw("failed to restore sections after import failure", "error", rerr)
		}
		return nil, fmt.Errorf("failed to replace snapshots: %w", err)
	}

	s.Logger.Infow("import complete", "sections", len(sections), "snapshots", len(snaps))
	return &ImportSummary{Sections: len(sections), Snapshots: len(snaps)}, nil
}

func decode(data []byte) ([]domain.Section, []domain.Snapshot, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return nil, nil, invalid("not a JSON object")
	}

	sections := []domain.Section{}
	if isArray(doc["sections"]) {
		if err := json.Unmarshal(doc["sections"], &sections); err != nil {
			return nil, nil, invalid("sections: %v", err)
		}
	}
	for i := range sections {
		if sections[i].ID == uuid.Nil {
			sections[i].ID = uuid.New()
		}
		if err := sections[i].Validate(); err != nil {
			return nil, nil, invalid("section %d: %v", i, err)
		}
	}

	snaps := []domain.Snapshot{}
	if isArray(doc["snapshots"]) {
		if err := json.Unmarshal(doc["snapshots"], &snaps); err != nil {
			return nil, nil, invalid("snapshots: %v", err)
		}
	}
	for i := range snaps {
		day, err := domain.ParseDate(snaps[i].Date)
		if err != nil {
			return nil, nil, invalid("snapshot %d: %v", i, err)
		}
		snaps[i].Date = day
		if snaps[i].Sections == nil {
			snaps[i].Sections = []domain.Section{}
		}
	}
	return sections, snaps, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidImport, fmt.Sprintf(format, args...))
}
