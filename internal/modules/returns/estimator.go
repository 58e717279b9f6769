// Package returns converts price history into per-instrument return
// series and cross-instrument covariance structure for the risk engine.
package returns

import (
	"context"
	"time"

	"github.com/aristath/riskwatch/internal/domain"
	"github.com/aristath/riskwatch/pkg/formulas"
	"github.com/rs/zerolog"
)

// DefaultFetchTimeout bounds a single price-history fetch. A fetch that
// exceeds it degrades to "no data for that symbol" instead of failing the
// portfolio evaluation.
const DefaultFetchTimeout = 10 * time.Second

// Estimator fetches price history and derives daily return series.
type Estimator struct {
	history      domain.PriceHistoryProvider
	fetchTimeout time.Duration
	log          zerolog.Logger
}

// NewEstimator creates a new returns estimator.
func NewEstimator(history domain.PriceHistoryProvider, log zerolog.Logger) *Estimator {
	return &Estimator{
		history:      history,
		fetchTimeout: DefaultFetchTimeout,
		log:          log.With().Str("service", "returns").Logger(),
	}
}

// SetFetchTimeout overrides the per-symbol fetch timeout.
func (e *Estimator) SetFetchTimeout(d time.Duration) {
	e.fetchTimeout = d
}

// calendarWindow converts a trading-day lookback into a calendar-day fetch
// window. Weekends and holidays mean ~252 trading days span ~365 calendar
// days, so fetch half again as much plus a fixed pad.
func calendarWindow(lookbackDays int) int {
	return lookbackDays + lookbackDays/2 + 10
}

// EstimateReturns returns a mapping symbol -> ordered daily return series
// (oldest first, most recent last), truncated to the most recent
// lookbackDays values. Symbols with fewer than 2 price points, fetch
// errors, or timeouts yield an empty series; downstream consumers treat
// empty series as zero variance, never as an error.
func (e *Estimator) EstimateReturns(ctx context.Context, symbols []string, lookbackDays int) map[string][]float64 {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -calendarWindow(lookbackDays))

	series := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		series[symbol] = e.fetchSeries(ctx, symbol, start, end, lookbackDays)
	}
	return series
}

func (e *Estimator) fetchSeries(ctx context.Context, symbol string, start, end time.Time, lookbackDays int) []float64 {
	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	candles, err := e.history.GetHistory(fetchCtx, symbol, start, end)
	if err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch price history, treating as no data")
		return []float64{}
	}
	if len(candles) < 2 {
		e.log.Warn().Str("symbol", symbol).Int("points", len(candles)).Msg("Insufficient price history")
		return []float64{}
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	dailyReturns := formulas.CalculateReturns(closes)
	if len(dailyReturns) > lookbackDays {
		dailyReturns = dailyReturns[len(dailyReturns)-lookbackDays:]
	}
	return dailyReturns
}

// AlignSeries right-aligns every series to a common length (the longest
// series present), zero-filling the older portion of shorter series and
// the whole row for symbols with no data. All series end "today", so
// aligning on the most recent observation keeps trading days paired.
func AlignSeries(symbols []string, series map[string][]float64) (map[string][]float64, int) {
	n := 0
	for _, s := range symbols {
		if len(series[s]) > n {
			n = len(series[s])
		}
	}

	aligned := make(map[string][]float64, len(symbols))
	for _, s := range symbols {
		row := make([]float64, n)
		src := series[s]
		copy(row[n-len(src):], src)
		aligned[s] = row
	}
	return aligned, n
}

// PortfolioSeries builds the weighted portfolio daily return series from a
// snapshot and per-symbol series. Days where a symbol has no data
// contribute 0 for that symbol (an accepted approximation, not a dropped
// day).
func PortfolioSeries(snapshot domain.PortfolioSnapshot, series map[string][]float64) []float64 {
	aligned, n := AlignSeries(snapshot.Symbols(), series)
	if n == 0 {
		return []float64{}
	}

	portfolio := make([]float64, n)
	for _, p := range snapshot.Positions {
		row := aligned[p.Symbol]
		for i := 0; i < n; i++ {
			portfolio[i] += p.Weight * row[i]
		}
	}
	return portfolio
}
