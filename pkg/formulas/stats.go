// Package formulas provides pure statistical functions used by the risk
// engine. All functions are deterministic and return well-defined values
// (zero, not NaN) on degenerate input.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the number of trading days used for annualization.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the unbiased sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the unbiased sample covariance between two series.
// Series of different lengths are truncated to their common most-recent
// length; fewer than 2 overlapping points yields 0.
func Covariance(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0
	}
	return stat.Covariance(x[len(x)-n:], y[len(y)-n:], nil)
}

// Correlation calculates the Pearson correlation coefficient between two series
func Correlation(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0
	}
	return stat.Correlation(x[len(x)-n:], y[len(y)-n:], nil)
}

// CalculateReturns converts prices to simple daily returns.
// Returns[i] = (Price[i] - Price[i-1]) / Price[i-1]
// A zero previous price contributes a zero return rather than Inf.
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// AnnualizedVolatility calculates annualized volatility from daily returns.
// Formula: sample stddev of daily returns × sqrt(252)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// RollingVolatility calculates an annualized rolling-volatility series over
// the given window. The first window-1 entries are zero (talib warm-up).
func RollingVolatility(dailyReturns []float64, window int) []float64 {
	if window < 2 || len(dailyReturns) < window {
		return []float64{}
	}

	rolling := talib.StdDev(dailyReturns, window, 1.0)
	annualized := make([]float64, len(rolling))
	scale := math.Sqrt(TradingDaysPerYear)
	for i, v := range rolling {
		// talib zero-fills the warm-up region; sample correction on the rest
		annualized[i] = v * scale * math.Sqrt(float64(window)/float64(window-1))
	}
	return annualized
}

// WeightedSum computes sum(weights[i] * values[i]) over the shorter of the
// two slices.
func WeightedSum(weights, values []float64) float64 {
	n := len(weights)
	if len(values) < n {
		n = len(values)
	}
	total := 0.0
	for i := 0; i < n; i++ {
		total += weights[i] * values[i]
	}
	return total
}
