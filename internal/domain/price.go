package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LatestPriceTTL is how long a "latest" price stays valid in the cache.
// Date-specific prices never expire: a historical close does not change.
const LatestPriceTTL = 5 * time.Minute

// NormalizeTicker trims and upper-cases a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// PriceCacheKey returns TICKER for latest prices and TICKER_YYYY-MM-DD for
// date-specific prices
func PriceCacheKey(ticker, dateKey string) string {
	key := NormalizeTicker(ticker)
	if dateKey == "" {
		return key
	}
	return key + "_" + dateKey
}

// PriceCacheEntry is a previously resolved price
type PriceCacheEntry struct {
	Price     decimal.Decimal `json:"price"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// FreshAt reports whether a latest-price entry is younger than ttl at now
func (e PriceCacheEntry) FreshAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// PriceResult is the outcome of a price resolution.
// Price is nil when nothing could be resolved; Error then carries the reason.
// For latest lookups a stale cached price may come back together with an Error.
type PriceResult struct {
	Price *decimal.Decimal `json:"price"`
	Error string           `json:"error,omitempty"`
}

// Found reports whether a price was resolved
func (r PriceResult) Found() bool {
	return r.Price != nil
}

// Bar is one daily bar from the price source. Close is nil for bars the
// source reports without a closing price.
type Bar struct {
	Time  time.Time
	Close *decimal.Decimal
}

// LatestQuote is the answer of a latest-price query: the most recent bars plus
// the optional real-time metadata of the exchange
type LatestQuote struct {
	RegularMarketPrice *decimal.Decimal
	PreviousClose      *decimal.Decimal
	Bars               []Bar
}

// Price picks the exchange's current price, then the previous close, then the
// most recent non-null bar close
func (q LatestQuote) Price() (decimal.Decimal, bool) {
	if q.RegularMarketPrice != nil {
		return *q.RegularMarketPrice, true
	}
	if q.PreviousClose != nil {
		return *q.PreviousClose, true
	}
	for i := len(q.Bars) - 1; i >= 0; i-- {
		if q.Bars[i].Close != nil {
			return *q.Bars[i].Close, true
		}
	}
	return decimal.Zero, false
}

// SelectAsOf returns the close of the most recent bar dated on or before date.
// Bars are scanned from the most recent to the oldest and the first one with a
// close price wins.
func SelectAsOf(bars []Bar, date string) (decimal.Decimal, bool) {
	for i := len(bars) - 1; i >= 0; i-- {
		day := bars[i].Time.UTC().Format(time.DateOnly)
		if day <= date && bars[i].Close != nil {
			return *bars[i].Close, true
		}
	}
	return decimal.Zero, false
}

// AsOfWindow returns the query window used for a date-specific lookup: seven
// days before noon UTC of the date up to one day after it
func AsOfWindow(date string) (from, to time.Time, err error) {
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	noon := day.Add(12 * time.Hour)
	return noon.AddDate(0, 0, -7), noon.AddDate(0, 0, 1), nil
}
