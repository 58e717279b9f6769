package clientdata

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/riskwatch/internal/domain"
	"github.com/rs/zerolog"
)

// CachedPriceProvider decorates a CurrentPriceProvider with the TTL cache.
type CachedPriceProvider struct {
	inner domain.CurrentPriceProvider
	cache *Repository
	log   zerolog.Logger
}

// NewCachedPriceProvider creates a read-through price cache.
// A nil cache repository degrades to pass-through.
func NewCachedPriceProvider(inner domain.CurrentPriceProvider, cache *Repository, log zerolog.Logger) *CachedPriceProvider {
	return &CachedPriceProvider{
		inner: inner,
		cache: cache,
		log:   log.With().Str("component", "price_cache").Logger(),
	}
}

// GetCurrentPrice returns the cached price when fresh, otherwise asks the
// underlying provider and stores the result.
func (p *CachedPriceProvider) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	key := "current_price:" + symbol

	if p.cache != nil {
		var price float64
		if ok, err := p.cache.Get(key, &price); err == nil && ok {
			return price, nil
		}
	}

	price, err := p.inner.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}

	if p.cache != nil {
		if err := p.cache.Set(key, price, TTLCurrentPrice); err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache current price")
		}
	}
	return price, nil
}

// CachedHistoryProvider decorates a PriceHistoryProvider with the TTL cache.
type CachedHistoryProvider struct {
	inner domain.PriceHistoryProvider
	cache *Repository
	log   zerolog.Logger
}

// NewCachedHistoryProvider creates a read-through history cache.
func NewCachedHistoryProvider(inner domain.PriceHistoryProvider, cache *Repository, log zerolog.Logger) *CachedHistoryProvider {
	return &CachedHistoryProvider{
		inner: inner,
		cache: cache,
		log:   log.With().Str("component", "history_cache").Logger(),
	}
}

// GetHistory returns cached daily bars for the range when fresh.
func (p *CachedHistoryProvider) GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.Candle, error) {
	key := fmt.Sprintf("history:%s:%s:%s", symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))

	if p.cache != nil {
		var candles []domain.Candle
		if ok, err := p.cache.Get(key, &candles); err == nil && ok {
			return candles, nil
		}
	}

	candles, err := p.inner.GetHistory(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	if p.cache != nil && len(candles) > 0 {
		if err := p.cache.Set(key, candles, TTLDailyHistory); err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache price history")
		}
	}
	return candles, nil
}
