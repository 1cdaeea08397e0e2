package snapshot

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/networth-backend/internal/domain"
)

func seeded(t *testing.T) *SnapshotService {
	t.Helper()
	ctx := context.Background()
	svc := newService(&fakeSnapshotRepo{}, new(MockSectionLister), new(MockPriceResolver))
	for date, value := range map[string]string{
		"2024-01-01": "1000",
		"2024-02-01": "1500.5",
		"2024-03-01": "1250",
	} {
		_, err := svc.Save(ctx, date, []domain.Section{cash(value)})
		require.NoError(t, err)
	}
	return svc
}

func TestHistory(t *testing.T) {
	svc := seeded(t)

	h, err := svc.History(context.Background())

	require.NoError(t, err)
	require.Len(t, h.Points, 3)
	assert.Equal(t, "2024-01-01", h.Points[0].Date)
	assert.Equal(t, "2024-03-01", h.Points[2].Date)
	require.NotNil(t, h.Stats)
	assert.Equal(t, "1500.5", h.Stats.High.String())
	assert.Equal(t, "1000", h.Stats.Low.String())
	assert.Equal(t, "1250.17", h.Stats.Mean.String())
	assert.Equal(t, "1250", h.Stats.Median.String())
	assert.Equal(t, "250", h.Stats.Change.String())
}

func TestHistory_Empty(t *testing.T) {
	svc := newService(&fakeSnapshotRepo{}, new(MockSectionLister), new(MockPriceResolver))

	h, err := svc.History(context.Background())

	require.NoError(t, err)
	assert.Empty(t, h.Points)
	assert.Nil(t, h.Stats)
}

func TestWriteHistoryCSV(t *testing.T) {
	svc := seeded(t)
	var buf bytes.Buffer

	require.NoError(t, svc.WriteHistoryCSV(context.Background(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "date,total_net_worth,display,sections", lines[0])
	assert.Equal(t, `2024-01-01,1000.00,"$1,000.00",1`, lines[1])
	assert.Equal(t, `2024-02-01,1500.50,"$1,500.50",1`, lines[2])
}
