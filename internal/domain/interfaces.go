package domain

import (
	"context"
	"time"
)

// PriceHistoryProvider supplies daily OHLC series per instrument.
// Implementations may return fewer points than requested and must return
// an empty slice (not an error) when no data exists for the range.
type PriceHistoryProvider interface {
	GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]Candle, error)
}

// CurrentPriceProvider supplies the latest known price per instrument.
type CurrentPriceProvider interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// PortfolioStore is the read-only source of stored portfolios.
type PortfolioStore interface {
	GetPortfolio(ctx context.Context, ownerID, portfolioID int64) (*PortfolioRecord, error)
	ListPortfolios(ctx context.Context, ownerID int64) ([]PortfolioRecord, error)
}

// NotificationDispatcher forwards triggered alerts. Delivery is
/// best-effort: callers log failures but never fail the alerting path.
type NotificationDispatcher interface {
	Notify(ctx context.Context, ownerID int64, severity, title, message string, metadata map[string]interface{}) error
}
