package snapshot

import (
	"context"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/simaogato/networth-backend/internal/domain"
)

// HistoryPoint is one point of the net worth chart
type HistoryPoint struct {
	Date          string          `json:"date"`
	TotalNetWorth decimal.Decimal `json:"totalNetWorth"`
}

// HistoryStats summarizes the net worth over every snapshot
type HistoryStats struct {
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Mean   decimal.Decimal `json:"mean"`
	Median decimal.Decimal `json:"median"`
	Change decimal.Decimal `json:"change"` // last minus first
}

// History is the chart of every snapshot, oldest first
type History struct {
	Points []HistoryPoint `json:"points"`
	Stats  *HistoryStats  `json:"stats,omitempty"` // nil without snapshots
}

// historyRow is one line of the history CSV
type historyRow struct {
	Date          string `csv:"date"`
	TotalNetWorth string `csv:"total_net_worth"`
	Display       string `csv:"display"`
	Sections      int    `csv:"sections"`
}

// History returns the net worth chart of every snapshot
func (s *SnapshotService) History(ctx context.Context) (*History, error) {
	snaps, err := s.SnapshotRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	h := &History{Points: make([]HistoryPoint, 0, len(snaps))}
	if len(snaps) == 0 {
		return h, nil
	}

	totals := make(stats.Float64Data, 0, len(snaps))
	high, low := snaps[0].TotalNetWorth, snaps[0].TotalNetWorth
	for _, snap := range snaps {
		h.Points = append(h.Points, HistoryPoint{Date: snap.Date, TotalNetWorth: snap.TotalNetWorth})
		totals = append(totals, snap.TotalNetWorth.InexactFloat64())
		high = decimal.Max(high, snap.TotalNetWorth)
		low = decimal.Min(low, snap.TotalNetWorth)
	}

	mean, err := stats.Mean(totals)
	if err != nil {
		return nil, fmt.Errorf("failed to compute mean: %w", err)
	}
	median, err := stats.Median(totals)
	if err != nil {
		return nil, fmt.Errorf("failed to compute median: %w", err)
	}

	h.Stats = &HistoryStats{
		High:   high,
		Low:    low,
		Mean:   decimal.NewFromFloat(mean).Round(2),
		Median: decimal.NewFromFloat(median).Round(2),
		Change: snaps[len(snaps)-1].TotalNetWorth.Sub(snaps[0].TotalNetWorth),
	}
	return h, nil
}

// WriteHistoryCSV writes one CSV line per snapshot, oldest first
func (s *SnapshotService) WriteHistoryCSV(ctx context.Context, w io.Writer) error {
	snaps, err := s.SnapshotRepo.List(ctx)
	if err != nil {
		return err
	}

	rows := make([]*historyRow, 0, len(snaps))
	for _, snap := range snaps {
		rows = append(rows, &historyRow{
			Date:          snap.Date,
			TotalNetWorth: snap.TotalNetWorth.StringFixed(2),
			Display:       domain.FormatMoney(snap.TotalNetWorth),
			Sections:      len(snap.Sections),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write history csv: %w", err)
	}
	return nil
}
