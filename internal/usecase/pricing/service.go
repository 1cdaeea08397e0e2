package pricing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/logger"
)

// Latest selects the latest-price mode of Resolve
const Latest = "latest"

const noTicker = "No ticker"

var (
	errNoSources     = errors.New("no price source configured")
	errNoPrice       = errors.New("no price data")
	errNoPriceOnDate = errors.New("no price data for date")
)

// PricingService resolves stock prices, cache first, then each source in order
type PricingService struct {
	CacheRepo domain.PriceCacheRepository
	Sources   []domain.PriceSource
	Logger    *zap.SugaredLogger
	LatestTTL time.Duration
	Now       func() time.Time
}

// NewPricingService creates a new PricingService instance.
// Sources are tried in order; the first one is the primary route.
func NewPricingService(cacheRepo domain.PriceCacheRepository, sources []domain.PriceSource, l *zap.SugaredLogger) *PricingService {
	return &PricingService{
		CacheRepo: cacheRepo,
		Sources:   sources,
		Logger:    logger.OrNop(l),
		LatestTTL: domain.LatestPriceTTL,
		Now:       time.Now,
	}
}

// Resolve resolves the price of ticker as of asOfDate, or the latest price
// when asOfDate is empty or "latest". It never fails: a nil Price in the
// result is the failure signal.
func (s *PricingService) Resolve(ctx context.Context, ticker, asOfDate string) domain.PriceResult {
	if asOfDate == "" || strings.EqualFold(asOfDate, Latest) {
		return s.ResolveLatest(ctx, ticker)
	}
	return s.ResolveAsOf(ctx, ticker, asOfDate)
}

// ResolveAsOf returns the closing price of ticker on the most recent trading
// day on or before date
// Logic:
//   - Cached TICKER_YYYY-MM-DD entries never expire
//   - Otherwise query the bars of [date-7d, date+1d] and pick the last close on or before date
//   - Failure yields no price; there is no stale fallback for dates
func (s *PricingService) ResolveAsOf(ctx context.Context, ticker, date string) domain.PriceResult {
	key := domain.NormalizeTicker(ticker)
	if key == "" {
		return domain.PriceResult{Error: noTicker}
	}
	day, err := domain.ParseDate(date)
	if err != nil {
		return domain.PriceResult{Error: err.Error()}
	}

	if cached, ok := s.CacheRepo.Get(ctx, domain.PriceCacheKey(key, day)); ok {
		return found(cached.Price)
	}

	from, to, _ := domain.AsOfWindow(day)
	price, err := s.fromSources(key, func(src domain.PriceSource) (decimal.Decimal, error) {
		bars, err := src.HistoricalBars(ctx, key, from, to)
		if err != nil {
			return decimal.Zero, err
		}
		p, ok := domain.SelectAsOf(bars, day)
		if !ok {
			return decimal.Zero, errNoPriceOnDate
		}
		return p, nil
	})
	if err != nil {
		return domain.PriceResult{Error: err.Error()}
	}

	s.store(ctx, key, price, day)
	return found(price)
}

// ResolveLatest returns the current price of ticker
// Logic:
//   - A cached TICKER entry younger than LatestTTL is returned as is
//   - Otherwise ask the sources: market price, else previous close, else last close
//   - When every source fails, the last cached price (even expired) comes back with the error
func (s *PricingService) ResolveLatest(ctx context.Context, ticker string) domain.PriceResult {
	key := domain.NormalizeTicker(ticker)
	if key == "" {
		return domain.PriceResult{Error: noTicker}
	}

	cached, hasCached := s.CacheRepo.Get(ctx, domain.PriceCacheKey(key, ""))
	if hasCached && cached.FreshAt(s.Now(), s.LatestTTL) {
		return found(cached.Price)
	}

	price, err := s.fromSources(key, func(src domain.PriceSource) (decimal.Decimal, error) {
		quote, err := src.Latest(ctx, key)
		if err != nil {
			return decimal.Zero, err
		}
		p, ok := quote.Price()
		if !ok {
			return decimal.Zero, errNoPrice
		}
		return p, nil
	})
	if err != nil {
		result := domain.PriceResult{Error: err.Error()}
		if hasCached {
			result.Price = &cached.Price
		}
		return result
	}

	s.store(ctx, key, price, "")
	return found(price)
}

// fromSources asks each source in turn and returns the first price found,
// or the error of the last source tried
func (s *PricingService) fromSources(ticker string, query func(domain.PriceSource) (decimal.Decimal, error)) (decimal.Decimal, error) {
	lastErr := errNoSources
	for _, src := range s.Sources {
		price, err := query(src)
		if err == nil {
			return price, nil
		}
		s.Logger.Warnw("price lookup failed", "ticker", ticker, "route", src.Name(), "error", err)
		lastErr = err
	}
	return decimal.Zero, lastErr
}

func (s *PricingService) store(ctx context.Context, ticker string, price decimal.Decimal, dateKey string) {
	if err := s.CacheRepo.Set(ctx, ticker, price, dateKey, s.Now()); err != nil {
		s.Logger.Warnw("failed to cache price", "ticker", ticker, "date", dateKey, "error", err)
	}
}

// CacheSize returns the number of cached prices
func (s *PricingService) CacheSize(ctx context.Context) int {
	return s.CacheRepo.Len(ctx)
}

// ClearCache removes every cached price and returns how many were removed.
// Nothing is removed unless confirm is set.
func (s *PricingService) ClearCache(ctx context.Context, confirm bool) (int, error) {
	if !confirm {
		return 0, domain.ErrConfirmationRequired
	}
	n := s.CacheRepo.Len(ctx)
	if err := s.CacheRepo.Clear(ctx); err != nil {
		return 0, err
	}
	s.Logger.Infow("price cache cleared", "entries", n)
	return n, nil
}

func found(price decimal.Decimal) domain.PriceResult {
	return domain.PriceResult{Price: &price}
}
