package varcalc

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/aristath/riskwatch/internal/config"
	"github.com/aristath/riskwatch/internal/domain"
	"github.com/aristath/riskwatch/internal/modules/returns"
	"github.com/aristath/riskwatch/pkg/formulas"
	"github.com/rs/zerolog"
)

// Calculator computes portfolio VaR and Expected Shortfall.
type Calculator struct {
	estimator *returns.Estimator
	cfg       config.RiskConfig
	log       zerolog.Logger
}

// NewCalculator creates a new VaR calculator.
func NewCalculator(estimator *returns.Estimator, cfg config.RiskConfig, log zerolog.Logger) *Calculator {
	return &Calculator{
		estimator: estimator,
		cfg:       cfg,
		log:       log.With().Str("service", "varcalc").Logger(),
	}
}

func (c *Calculator) fillDefaults(p Params) Params {
	if p.Method == "" {
		p.Method = MethodHistorical
	}
	if p.ConfidenceLevel == 0 {
		p.ConfidenceLevel = c.cfg.ConfidenceLevel
	}
	if p.HorizonDays <= 0 {
		p.HorizonDays = c.cfg.HorizonDays
	}
	if p.LookbackDays <= 0 {
		p.LookbackDays = c.cfg.LookbackDays
	}
	if p.Simulations <= 0 {
		p.Simulations = c.cfg.Simulations
	}
	return p
}

// Calculate runs a full VaR calculation for a portfolio snapshot: fetches
// return series, applies the requested method, scales to the horizon, and
// decomposes the result into per-position components.
func (c *Calculator) Calculate(ctx context.Context, snapshot domain.PortfolioSnapshot, params Params) (Result, error) {
	params = c.fillDefaults(params)

	if !ValidMethod(params.Method) {
		return Result{}, ErrUnknownMethod
	}
	if params.ConfidenceLevel <= 0 || params.ConfidenceLevel >= 1 {
		return Result{}, ErrInvalidConfidence
	}
	if snapshot.IsDegenerate() {
		return Result{}, ErrDegeneratePortfolio
	}

	symbols := snapshot.Symbols()
	series := c.estimator.EstimateReturns(ctx, symbols, params.LookbackDays)
	aligned, observations := returns.AlignSeries(symbols, series)
	portfolioSeries := returns.PortfolioSeries(snapshot, aligned)

	result := Result{
		PortfolioID:     snapshot.PortfolioID,
		Method:          params.Method,
		ConfidenceLevel: params.ConfidenceLevel,
		HorizonDays:     params.HorizonDays,
		LookbackDays:    params.LookbackDays,
		PortfolioValue:  snapshot.TotalValue,
		ComputedAt:      time.Now().UTC(),
	}
	result.Diagnostics.Observations = observations
	result.Diagnostics.MeanDailyReturn = formulas.Mean(portfolioSeries)
	result.Diagnostics.DailyVolatility = formulas.StdDev(portfolioSeries)

	var varPct, esPct float64
	var err error
	switch params.Method {
	case MethodHistorical:
		varPct, esPct = historicalVaR(portfolioSeries, params.ConfidenceLevel)
	case MethodParametric:
		varPct, esPct = parametricVaR(portfolioSeries, params.ConfidenceLevel)
	case MethodMonteCarlo:
		varPct, esPct, err = c.monteCarloVaR(snapshot, aligned, params, &result.Diagnostics)
		if err != nil {
			return Result{}, err
		}
	}

	scale := math.Sqrt(float64(params.HorizonDays))
	result.VaRPct = varPct * scale
	result.ESPct = esPct * scale
	result.VaRAmount = result.VaRPct * snapshot.TotalValue
	result.ESAmount = result.ESPct * snapshot.TotalValue

	result.Components = decompose(snapshot, aligned, portfolioSeries, result.VaRPct)
	sum := 0.0
	for _, comp := range result.Components {
		sum += comp.VaRAmount
	}
	result.Diagnostics.ComponentSum = sum

	c.log.Debug().
		Int64("portfolio_id", snapshot.PortfolioID).
		Str("method", string(params.Method)).
		Float64("var_pct", result.VaRPct).
		Float64("var_amount", result.VaRAmount).
		Msg("VaR calculated")

	return result, nil
}

// historicalVaR takes the empirical loss quantile of the observed return
// distribution. With N observations and confidence c, the VaR return is
// the floor(N*(1-c))-th smallest return; ES averages the returns at or
// below it. An empty series yields zero.
func historicalVaR(series []float64, confidence float64) (varPct, esPct float64) {
	if len(series) == 0 {
		return 0, 0
	}

	sorted := append([]float64(nil), series...)
	sort.Float64s(sorted)

	idx := int(math.Floor(float64(len(sorted)) * (1 - confidence)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	varPct = -sorted[idx]
	esPct = -formulas.Mean(sorted[:idx+1])

	if varPct < 0 {
		varPct = 0
	}
	if esPct < 0 {
		esPct = 0
	}
	return varPct, esPct
}

// parametricVaR assumes normally distributed returns. VaR is
// -(mu - z*sigma) and ES is -(mu - sigma*phi(z)/(1-c)), clamped at zero.
// Zero volatility yields zero VaR.
func parametricVaR(series []float64, confidence float64) (varPct, esPct float64) {
	mean := formulas.Mean(series)
	sigma := formulas.StdDev(series)
	if sigma == 0 {
		return 0, 0
	}

	z := formulas.ZScore(confidence)
	varPct = -(mean - z*sigma)
	esPct = -(mean - sigma*formulas.NormalPDF(z)/(1-confidence))

	if varPct < 0 {
		varPct = 0
	}
	if esPct < 0 {
		esPct = 0
	}
	return varPct, esPct
}
