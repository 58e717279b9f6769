// Package domain provides core domain models and the collaborator
// contracts consumed by the risk engine.
package domain

import (
	"math"
	"time"
)

// ValueTolerance is the floating tolerance used when checking snapshot
// invariants (sum of market values vs total, sum of weights vs 1).
const ValueTolerance = 1e-6

// Position represents a single holding inside a portfolio snapshot.
// Quantity and cost basis are mutated only by external trade booking,
// never by this engine.
type Position struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Sector       string  `json:"sector,omitempty"`
	Quantity     int64   `json:"quantity"`
	AverageCost  float64 `json:"average_cost"`
	CurrentPrice float64 `json:"current_price"`
	MarketValue  float64 `json:"market_value"`
	Weight       float64 `json:"weight"`
}

// PortfolioSnapshot is an immutable point-in-time capture of a portfolio.
// It is constructed fresh for every risk computation and passed by value
// through the whole pipeline.
type PortfolioSnapshot struct {
	PortfolioID int64      `json:"portfolio_id"`
	OwnerID     int64      `json:"owner_id"`
	Name        string     `json:"name"`
	TotalValue  float64    `json:"total_value"`
	Positions   []Position `json:"positions"`
	CapturedAt  time.Time  `json:"captured_at"`
}

// IsDegenerate reports whether the snapshot has no investable value.
// Risk computation must short-circuit on degenerate snapshots.
func (s PortfolioSnapshot) IsDegenerate() bool {
	return s.TotalValue <= 0 || len(s.Positions) == 0
}

// Symbols returns the position symbols in snapshot order.
func (s PortfolioSnapshot) Symbols() []string {
	symbols := make([]string, len(s.Positions))
	for i, p := range s.Positions {
		symbols[i] = p.Symbol
	}
	return symbols
}

// CheckInvariants verifies that position market values sum to the total
// value and weights sum to 1 (within tolerance). Degenerate snapshots
// trivially pass since weights are undefined for them.
func (s PortfolioSnapshot) CheckInvariants() bool {
	if s.IsDegenerate() {
		return true
	}

	valueSum := 0.0
	weightSum := 0.0
	for _, p := range s.Positions {
		valueSum += p.MarketValue
		weightSum += p.Weight
	}

	if math.Abs(valueSum-s.TotalValue) > ValueTolerance*math.Max(1, math.Abs(s.TotalValue)) {
		return false
	}
	return math.Abs(weightSum-1) <= ValueTolerance*float64(len(s.Positions)+1)
}

// Candle represents one daily OHLCV price bar.
type Candle struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume *int64  `json:"volume,omitempty"`
}

// Holding is a stored portfolio row as the Portfolio Store returns it.
// Prices are attached later when building a snapshot.
type Holding struct {
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Sector      string  `json:"sector,omitempty"`
	Quantity    int64   `json:"quantity"`
	AverageCost float64 `json:"average_cost"`
}

// PortfolioRecord is the stored portfolio with its holdings.
type PortfolioRecord struct {
	ID       int64     `json:"id"`
	OwnerID  int64     `json:"owner_id"`
	Name     string    `json:"name"`
	Holdings []Holding `json:"holdings"`
}

// RiskMetrics holds the per-tick monitoring metrics evaluated by the
// alert engine.
type RiskMetrics struct {
	PortfolioValue     float64   `json:"portfolio_value"`
	DailyPnL           float64   `json:"daily_pnl"`
	DailyPnLPercentage float64   `json:"daily_pnl_percentage"`
	CurrentVaR         float64   `json:"current_var"`
	Volatility         float64   `json:"volatility"`
	MaxDrawdown        float64   `json:"max_drawdown"`
	Concentration      float64   `json:"concentration"`
	MonitoringTime     time.Time `json:"monitoring_time"`
}

// Metric returns a named metric value for custom alert rule evaluation.
// Unknown names return (0, false).
func (m RiskMetrics) Metric(name string) (float64, bool) {
	switch name {
	case "portfolio_value":
		return m.PortfolioValue, true
	case "daily_pnl":
		return m.DailyPnL, true
	case "daily_pnl_percentage":
		return m.DailyPnLPercentage, true
	case "current_var":
		return m.CurrentVaR, true
	case "volatility":
		return m.Volatility, true
	case "max_drawdown":
		return m.MaxDrawdown, true
	case "concentration":
		return m.Concentration, true
	}
	return 0, false
}
