package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func snapsDates(list []Snapshot) []string {
	dates := make([]string, 0, len(list))
	for _, s := range list {
		dates = append(dates, s.Date)
	}
	return dates
}

func TestUpsertSnapshot_AppendsAndSorts(t *testing.T) {
	list := []Snapshot{{Date: "2024-01-01"}, {Date: "2024-03-01"}}

	out := UpsertSnapshot(list, Snapshot{Date: "2024-02-01"})

	assert.Equal(t, []string{"2024-01-01", "2024-02-01", "2024-03-01"}, snapsDates(out))
	assert.Len(t, list, 2, "input must not be modified")
}

func TestUpsertSnapshot_OverwritesSameDate(t *testing.T) {
	list := []Snapshot{
		{Date: "2024-01-01", TotalNetWorth: decimal.NewFromInt(1)},
		{Date: "2024-02-01", TotalNetWorth: decimal.NewFromInt(2)},
	}

	out := UpsertSnapshot(list, Snapshot{Date: "2024-01-01", TotalNetWorth: decimal.NewFromInt(10)})

	assert.Len(t, out, 2)
	assert.Equal(t, "10", out[0].TotalNetWorth.String())
	assert.Equal(t, "1", list[0].TotalNetWorth.String())
}

func TestUpsertSnapshot_SortsUnsortedInput(t *testing.T) {
	list := []Snapshot{{Date: "2024-05-01"}, {Date: "2023-12-31"}}

	out := UpsertSnapshot(list, Snapshot{Date: "2024-01-15"})

	assert.Equal(t, []string{"2023-12-31", "2024-01-15", "2024-05-01"}, snapsDates(out))
}

func TestFindAndLatestSnapshot(t *testing.T) {
	list := []Snapshot{{Date: "2024-01-01"}, {Date: "2024-02-01"}}

	snap, ok := FindSnapshot(list, "2024-02-01")
	assert.True(t, ok)
	assert.Equal(t, "2024-02-01", snap.Date)

	_, ok = FindSnapshot(list, "2030-01-01")
	assert.False(t, ok)

	latest, ok := LatestSnapshot(list)
	assert.True(t, ok)
	assert.Equal(t, "2024-02-01", latest.Date)

	_, ok = LatestSnapshot(nil)
	assert.False(t, ok)
}

func TestSnapshotClone(t *testing.T) {
	snap := Snapshot{Date: "2024-01-01", Sections: []Section{{AccountName: "Savings"}}}

	clone := snap.Clone()
	snap.Sections[0].AccountName = "Edited"

	assert.Equal(t, "Savings", clone.Sections[0].AccountName)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	assert.NoError(t, err)
	assert.Equal(t, "2024-02-29", d)

	_, err = ParseDate("2023-02-29")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ParseDate("02/01/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)

	d, err = DateOrToday("", testNow)
	assert.NoError(t, err)
	assert.Equal(t, "2025-03-14", d)
}
