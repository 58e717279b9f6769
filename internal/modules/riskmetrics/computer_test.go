package riskmetrics

import (
	"math"
	"testing"

	"github.com/aristath/riskwatch/pkg/formulas"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDegenerateSeries(t *testing.T) {
	computer := NewComputer(0.03, zerolog.Nop())

	for _, series := range [][]float64{nil, {}, {0.01}} {
		report := computer.Compute(series)
		assert.Equal(t, 0.0, report.AnnualizedVolatility)
		assert.Equal(t, 0.0, report.SharpeRatio)
		assert.Equal(t, 0.0, report.MaxDrawdown)
		assert.False(t, math.IsNaN(report.Skewness))
	}
}

func TestComputeConstantSeriesHasZeroVolatility(t *testing.T) {
	computer := NewComputer(0.03, zerolog.Nop())
	series := []float64{0.001, 0.001, 0.001, 0.001, 0.001}

	report := computer.Compute(series)
	assert.Equal(t, 0.0, report.DailyVolatility)
	assert.Equal(t, 0.0, report.SharpeRatio, "zero stddev must not divide")
	assert.InDelta(t, 0.001*252, report.AnnualizedReturn, 1e-12)
	assert.Equal(t, 0.0, report.MaxDrawdown, "strictly rising path has no drawdown")
}

func TestComputeAnnualization(t *testing.T) {
	computer := NewComputer(0.0, zerolog.Nop())
	series := []float64{0.01, -0.01, 0.02, -0.02, 0.01, -0.01}

	report := computer.Compute(series)
	assert.InDelta(t, formulas.StdDev(series)*math.Sqrt(252), report.AnnualizedVolatility, 1e-12)
	assert.InDelta(t, formulas.Mean(series)/formulas.StdDev(series)*math.Sqrt(252), report.SharpeRatio, 1e-12)
}

func TestComputeMaxDrawdownHalveAndRecover(t *testing.T) {
	computer := NewComputer(0.03, zerolog.Nop())
	// -50% then +100%: cumulative path dips to half and fully recovers
	series := []float64{-0.5, 1.0}

	report := computer.Compute(series)
	assert.InDelta(t, 0.5, report.MaxDrawdown, 1e-12)
}

func TestComputeSkewAndKurtosisOfSymmetricSeries(t *testing.T) {
	computer := NewComputer(0.03, zerolog.Nop())
	series := []float64{0.02, -0.02, 0.02, -0.02, 0.02, -0.02}

	report := computer.Compute(series)
	assert.InDelta(t, 0.0, report.Skewness, 1e-12)
	// two-point distribution at ±a has kurtosis 1, excess below zero
	assert.Less(t, report.ExcessKurtosis, 0.0)
}

func TestComputeWithRolling(t *testing.T) {
	computer := NewComputer(0.03, zerolog.Nop())
	series := make([]float64, 40)
	for i := range series {
		if i%2 == 0 {
			series[i] = 0.01
		} else {
			series[i] = -0.01
		}
	}

	report := computer.ComputeWithRolling(series, 20)
	require.Len(t, report.RollingVolatility, 40)
	assert.Equal(t, 0.0, report.RollingVolatility[0], "warm-up region is zero-filled")
	assert.Greater(t, report.RollingVolatility[39], 0.0)
}

func TestComputeWithRollingShortSeries(t *testing.T) {
	computer := NewComputer(0.03, zerolog.Nop())

	report := computer.ComputeWithRolling([]float64{0.01, -0.01}, 20)
	assert.Empty(t, report.RollingVolatility)
}
