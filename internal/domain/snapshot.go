package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is an immutable, dated record of the total net worth and the
// sections that produced it
type Snapshot struct {
	Date          string          `json:"date"` // YYYY-MM-DD, unique in the snapshot store
	TotalNetWorth decimal.Decimal `json:"totalNetWorth"`
	Sections      []Section       `json:"sections"`
	SavedAt       time.Time       `json:"savedAt"`
}

// Clone returns a copy of the snapshot that shares nothing with the receiver
func (s Snapshot) Clone() Snapshot {
	s.Sections = CloneSections(s.Sections)
	return s
}

// UpsertSnapshot replaces the snapshot with the same date or appends it,
// then sorts the list ascending by date. The input slice is not modified.
func UpsertSnapshot(list []Snapshot, snap Snapshot) []Snapshot {
	out := make([]Snapshot, 0, len(list)+1)
	replaced := false
	for _, existing := range list {
		if existing.Date == snap.Date {
			out = append(out, snap)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, snap)
	}
	SortSnapshots(out)
	return out
}

// SortSnapshots orders snapshots ascending by date
func SortSnapshots(list []Snapshot) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Date < list[j].Date
	})
}

// FindSnapshot returns the snapshot stored for date
func FindSnapshot(list []Snapshot, date string) (Snapshot, bool) {
	for _, s := range list {
		if s.Date == date {
			return s, true
		}
	}
	return Snapshot{}, false
}

// LatestSnapshot returns the most recent snapshot of a sorted list
func LatestSnapshot(list []Snapshot) (Snapshot, bool) {
	if len(list) == 0 {
		return Snapshot{}, false
	}
	return list[len(list)-1], true
}
