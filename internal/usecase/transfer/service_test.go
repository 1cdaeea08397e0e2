package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/networth-backend/internal/domain"
)

// MockSectionStore is a mock implementation of SectionStore for testing
type MockSectionStore struct {
	mock.Mock
}

func (m *MockSectionStore) List(ctx context.Context) ([]domain.Section, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Section), args.Error(1)
}

func (m *MockSectionStore) ReplaceAll(ctx context.Context, sections []domain.Section) error {
	return m.Called(ctx, sections).Error(0)
}

// MockSnapshotRepository is a mock implementation of SnapshotRepository for testing
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) List(ctx context.Context) ([]domain.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepository) Get(ctx context.Context, date string) (*domain.Snapshot, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepository) Upsert(ctx context.Context, snap domain.Snapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *MockSnapshotRepository) Delete(ctx context.Context, date string) error {
	return m.Called(ctx, date).Error(0)
}

func (m *MockSnapshotRepository) ReplaceAll(ctx context.Context, snaps []domain.Snapshot) error {
	return m.Called(ctx, snaps).Error(0)
}

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newService(sections *MockSectionStore, snaps *MockSnapshotRepository) *TransferService {
	svc := NewTransferService(sections, snaps, nil)
	svc.Now = func() time.Time { return testNow }
	return svc
}

func TestWriteExport(t *testing.T) {
	ctx := context.Background()
	sec := domain.NewSection(testNow)
	sec.AccountName = "Checking"
	sec.ValueDollars = decimal.RequireFromString("1234.5")
	snap := domain.Snapshot{Date: "2024-01-01", TotalNetWorth: sec.ValueDollars, Sections: []domain.Section{sec}, SavedAt: testNow}

	sections := new(MockSectionStore)
	snaps := new(MockSnapshotRepository)
	sections.On("List", ctx).Return([]domain.Section{sec}, nil).Once()
	snaps.On("List", ctx).Return([]domain.Snapshot{snap}, nil).Once()
	svc := newService(sections, snaps)
	var buf bytes.Buffer

	// Execute
	name, err := svc.WriteExport(ctx, &buf)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "networth-export-2025-03-14.json", name)
	assert.Contains(t, buf.String(), "\n  \"version\": 1,")
	assert.Contains(t, buf.String(), `"valueDollars": 1234.5`)

	var doc domain.ExportDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, domain.ExportVersion, doc.Version)
	assert.True(t, doc.ExportedAt.Equal(testNow))
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, sec.ID, doc.Sections[0].ID)
	require.Len(t, doc.Snapshots, 1)
	assert.Equal(t, "2024-01-01", doc.Snapshots[0].Date)
}

func TestImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	sec := domain.NewSection(testNow)
	sec.AssetType = domain.AssetTypeRealEstate
	sec.ValueDollars = decimal.NewFromInt(400000)
	sec.DebtDollars = decimal.NewFromInt(250000)
	snap := domain.Snapshot{Date: "2024-01-01", TotalNetWorth: decimal.NewFromInt(150000), Sections: []domain.Section{sec}, SavedAt: testNow}

	// Export from one store
	src := new(MockSectionStore)
	srcSnaps := new(MockSnapshotRepository)
	src.On("List", ctx).Return([]domain.Section{sec}, nil).Once()
	srcSnaps.On("List", ctx).Return([]domain.Snapshot{snap}, nil).Once()
	var buf bytes.Buffer
	_, err := newService(src, srcSnaps).WriteExport(ctx, &buf)
	require.NoError(t, err)

	// Import into another
	dst := new(MockSectionStore)
	dstSnaps := new(MockSnapshotRepository)
	dst.On("List", ctx).Return([]domain.Section{}, nil).Once()
	dst.On("ReplaceAll", ctx, mock.MatchedBy(func(got []domain.Section) bool {
		return len(got) == 1 && got[0].ID == sec.ID && got[0].DebtDollars.Equal(sec.DebtDollars)
	})).Return(nil).Once()
	dstSnaps.On("ReplaceAll", ctx, mock.MatchedBy(func(got []domain.Snapshot) bool {
		return len(got) == 1 && got[0].Date == "2024-01-01" && got[0].TotalNetWorth.Equal(snap.TotalNetWorth)
	})).Return(nil).Once()

	summary, err := newService(dst, dstSnaps).Import(ctx, buf.Bytes())

	require.NoError(t, err)
	assert.Equal(t, &ImportSummary{Sections: 1, Snapshots: 1}, summary)
	dst.AssertExpectations(t)
	dstSnaps.AssertExpectations(t)
}

func TestImport_NonArrayFieldsImportEmpty(t *testing.T) {
	ctx := context.Background()
	sections := new(MockSectionStore)
	snaps := new(MockSnapshotRepository)
	sections.On("List", ctx).Return([]domain.Section{domain.NewSection(testNow)}, nil).Once()
	sections.On("ReplaceAll", ctx, []domain.Section{}).Return(nil).Once()
	snaps.On("ReplaceAll", ctx, []domain.Snapshot{}).Return(nil).Once()

	summary, err := newService(sections, snaps).Import(ctx, []byte(`{"version":1,"sections":"nope","snapshots":{"a":1}}`))

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sections)
	assert.Equal(t, 0, summary.Snapshots)
	sections.AssertExpectations(t)
	snaps.AssertExpectations(t)
}

func TestImport_MissingIDGetsOne(t *testing.T) {
	ctx := context.Background()
	sections := new(MockSectionStore)
	snaps := new(MockSnapshotRepository)
	sections.On("List", ctx).Return([]domain.Section{}, nil).Once()
	sections.On("ReplaceAll", ctx, mock.MatchedBy(func(got []domain.Section) bool {
		return len(got) == 1 && got[0].ID != uuid.Nil && got[0].ValueDollars.String() == "12"
	})).Return(nil).Once()
	snaps.On("ReplaceAll", ctx, []domain.Snapshot{}).Return(nil).Once()

	_, err := newService(sections, snaps).Import(ctx, []byte(`{"sections":[{"accountName":"Wallet","assetType":"Cash","valueDollars":12}]}`))

	require.NoError(t, err)
	sections.AssertExpectations(t)
}

func TestImport_NegativeValuesAccepted(t *testing.T) {
	ctx := context.Background()
	sections := new(MockSectionStore)
	snaps := new(MockSnapshotRepository)
	sections.On("List", ctx).Return([]domain.Section{}, nil).Once()
	sections.On("ReplaceAll", ctx, mock.MatchedBy(func(got []domain.Section) bool {
		return len(got) == 1 && got[0].ValueDollars.String() == "-2500"
	})).Return(nil).Once()
	snaps.On("ReplaceAll", ctx, mock.MatchedBy(func(got []domain.Snapshot) bool {
		return len(got) == 1 && got[0].TotalNetWorth.String() == "-2500"
	})).Return(nil).Once()

	data := `{"sections":[{"accountName":"Credit Card","assetType":"Other","valueDollars":-2500}],` +
		`"snapshots":[{"date":"2024-01-05","totalNetWorth":-2500,"sections":[{"assetType":"Other","valueDollars":-2500}]}]}`
	summary, err := newService(sections, snaps).Import(ctx, []byte(data))

	require.NoError(t, err)
	assert.Equal(t, &ImportSummary{Sections: 1, Snapshots: 1}, summary)
	sections.AssertExpectations(t)
	snaps.AssertExpectations(t)
}

func TestImport_InvalidChangesNothing(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"sections": [`},
		{"not an object", `[1,2,3]`},
		{"null document", `null`},
		{"malformed section", `{"sections":[{"valueDollars":"abc","assetType":"Cash"}]}`},
		{"unknown asset type", `{"sections":[{"assetType":"Art"}]}`},
		{"negative shares", `{"sections":[{"assetType":"Stock","stockTicker":"AAPL","shares":-5}]}`},
		{"bad snapshot date", `{"snapshots":[{"date":"01/02/2024","totalNetWorth":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections := new(MockSectionStore)
			snaps := new(MockSnapshotRepository)

			_, err := newService(sections, snaps).Import(context.Background(), []byte(tt.data))

			assert.ErrorIs(t, err, domain.ErrInvalidImport)
			sections.AssertNotCalled(t, "ReplaceAll", mock.Anything, mock.Anything)
			snaps.AssertNotCalled(t, "ReplaceAll", mock.Anything, mock.Anything)
		})
	}
}

func TestImport_SnapshotFailureRestoresSections(t *testing.T) {
	ctx := context.Background()
	previous := []domain.Section{domain.NewSection(testNow)}
	sections := new(MockSectionStore)
	snaps := new(MockSnapshotRepository)
	sections.On("List", ctx).Return(previous, nil).Once()
	sections.On("ReplaceAll", ctx, []domain.Section{}).Return(nil).Once()
	sections.On("ReplaceAll", ctx, previous).Return(nil).Once()
	snaps.On("ReplaceAll", ctx, []domain.Snapshot{}).Return(errors.New("disk full")).Once()

	_, err := newService(sections, snaps).Import(ctx, []byte(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to replace snapshots")
	sections.AssertExpectations(t)
}
