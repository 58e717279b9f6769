// Package riskmetrics computes descriptive risk statistics over portfolio
// return series.
package riskmetrics

import (
	"math"

	"github.com/aristath/riskwatch/pkg/formulas"
	"github.com/rs/zerolog"
)

// Report holds the descriptive statistics of a portfolio return series.
// Every field is a pure function of the series and is well-defined (zero,
// never NaN) for degenerate inputs.
type Report struct {
	Observations         int       `json:"observations"`
	DailyMeanReturn      float64   `json:"dailyMeanReturn"`
	DailyVolatility      float64   `json:"dailyVolatility"`
	AnnualizedReturn     float64   `json:"annualizedReturn"`
	AnnualizedVolatility float64   `json:"annualizedVolatility"`
	Skewness             float64   `json:"skewness"`
	ExcessKurtosis       float64   `json:"excessKurtosis"`
	MaxDrawdown          float64   `json:"maxDrawdown"`
	SharpeRatio          float64   `json:"sharpeRatio"`
	RollingVolatility    []float64 `json:"rollingVolatility,omitempty"`
}

// Computer derives Report values from return series.
type Computer struct {
	riskFreeRate float64 // annual
	log          zerolog.Logger
}

// NewComputer creates a risk metrics computer with the given annual
// risk-free rate.
func NewComputer(riskFreeRate float64, log zerolog.Logger) *Computer {
	return &Computer{
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("service", "riskmetrics").Logger(),
	}
}

// Compute derives the full metrics report from a daily return series.
func (c *Computer) Compute(series []float64) Report {
	report := Report{Observations: len(series)}
	if len(series) < 2 {
		return report
	}

	report.DailyMeanReturn = formulas.Mean(series)
	report.DailyVolatility = formulas.StdDev(series)
	report.AnnualizedReturn = report.DailyMeanReturn * formulas.TradingDaysPerYear
	report.AnnualizedVolatility = formulas.AnnualizedVolatility(series)
	report.Skewness = formulas.Skewness(series)
	report.ExcessKurtosis = formulas.ExcessKurtosis(series)
	report.MaxDrawdown = formulas.MaxDrawdownFromReturns(series)
	report.SharpeRatio = c.sharpe(report.DailyMeanReturn, report.DailyVolatility)

	return report
}

// ComputeWithRolling is Compute plus a rolling annualized volatility
// series over the given window.
func (c *Computer) ComputeWithRolling(series []float64, window int) Report {
	report := c.Compute(series)
	if window >= 2 && len(series) >= window {
		report.RollingVolatility = formulas.RollingVolatility(series, window)
	}
	return report
}

// sharpe annualizes the excess-return ratio. Zero volatility yields 0.
func (c *Computer) sharpe(dailyMean, dailyStdDev float64) float64 {
	if dailyStdDev == 0 {
		return 0
	}
	dailyRiskFree := c.riskFreeRate / formulas.TradingDaysPerYear
	return (dailyMean - dailyRiskFree) / dailyStdDev * math.Sqrt(formulas.TradingDaysPerYear)
}
