// Package varcalc computes Value at Risk and Expected Shortfall for
// portfolio snapshots using historical, parametric, and Monte Carlo
// methods, with a per-position component VaR decomposition.
package varcalc

import (
	"errors"
	"time"
)

// Method selects the VaR estimation technique.
type Method string

const (
	MethodHistorical Method = "historical"
	MethodParametric Method = "parametric"
	MethodMonteCarlo Method = "monte_carlo"
)

var (
	// ErrUnknownMethod is returned for a method outside the supported set.
	ErrUnknownMethod = errors.New("unknown VaR method")

	// ErrInvalidConfidence is returned when the confidence level is not in (0, 1).
	ErrInvalidConfidence = errors.New("confidence level must be in (0, 1)")

	// ErrDegeneratePortfolio is returned when the snapshot has no positions
	// or zero total value.
	ErrDegeneratePortfolio = errors.New("portfolio has no positions or zero value")
)

// Params controls a single VaR calculation. Zero-valued fields fall back
// to the engine's configured defaults.
type Params struct {
	Method          Method  `json:"method"`
	ConfidenceLevel float64 `json:"confidenceLevel"`
	HorizonDays     int     `json:"horizonDays"`
	LookbackDays    int     `json:"lookbackDays"`
	Simulations     int     `json:"simulations"`

	// Seed makes Monte Carlo runs reproducible. Zero means derive a seed
	// from the clock.
	Seed uint64 `json:"seed,omitempty"`
}

// Component is one position's share of the portfolio VaR, computed with
// the covariance-beta decomposition so the components sum exactly to the
// portfolio VaR.
type Component struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	MarketValue  float64 `json:"marketValue"`
	VaRAmount    float64 `json:"varAmount"`
	VaRPct       float64 `json:"varPercentage"`
	Contribution float64 `json:"contribution"`
}

// Diagnostics records how a result was produced. Monte Carlo fields are
// zero for the other methods.
type Diagnostics struct {
	Observations    int     `json:"observations"`
	MeanDailyReturn float64 `json:"meanDailyReturn"`
	DailyVolatility float64 `json:"dailyVolatility"`
	ComponentSum    float64 `json:"componentSum"`

	Simulations     int     `json:"simulations,omitempty"`
	Seed            uint64  `json:"seed,omitempty"`
	CorrelationMode string  `json:"correlationMode,omitempty"`
	StandardError   float64 `json:"standardError,omitempty"`
}

// Result is a completed VaR calculation.
type Result struct {
	PortfolioID     int64       `json:"portfolioId"`
	Method          Method      `json:"method"`
	ConfidenceLevel float64     `json:"confidenceLevel"`
	HorizonDays     int         `json:"horizonDays"`
	LookbackDays    int         `json:"lookbackDays"`
	PortfolioValue  float64     `json:"portfolioValue"`
	VaRAmount       float64     `json:"varAmount"`
	VaRPct          float64     `json:"varPercentage"`
	ESAmount        float64     `json:"expectedShortfall"`
	ESPct           float64     `json:"expectedShortfallPct"`
	Components      []Component `json:"components"`
	Diagnostics     Diagnostics `json:"diagnostics"`
	ComputedAt      time.Time   `json:"computedAt"`
}

// ValidMethod reports whether m is one of the supported methods.
func ValidMethod(m Method) bool {
	switch m {
	case MethodHistorical, MethodParametric, MethodMonteCarlo:
		return true
	}
	return false
}
