package stress

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/aristath/riskwatch/internal/domain"
	"github.com/aristath/riskwatch/internal/modules/returns"
	"github.com/aristath/riskwatch/pkg/formulas"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// percentileLadder is the set of simulated-return percentiles retained in
// Monte Carlo results.
var percentileLadder = []float64{0.01, 0.05, 0.10, 0.25, 0.50, 0.75, 0.90, 0.95, 0.99}

// runMonteCarlo simulates correlated portfolio returns from the sample
// covariance matrix. The requested confidence quantile of the simulated
// loss distribution is the headline "worst case"; the opposite tail is
// the best case, and the full percentile ladder is retained.
func (t *Tester) runMonteCarlo(ctx context.Context, snapshot domain.PortfolioSnapshot, scenario Scenario) (Result, error) {
	simulations := scenario.Simulations
	if simulations <= 0 {
		simulations = t.cfg.Simulations
	}
	confidence := scenario.ConfidenceLevel
	if confidence == 0 {
		confidence = t.cfg.ConfidenceLevel
	}
	if confidence <= 0 || confidence >= 1 {
		return Result{}, fmt.Errorf("invalid confidence level %v", confidence)
	}
	lookback := scenario.LookbackDays
	if lookback <= 0 {
		lookback = t.cfg.LookbackDays
	}
	seed := scenario.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	symbols := snapshot.Symbols()
	series := t.estimator.EstimateReturns(ctx, symbols, lookback)
	aligned, _ := returns.AlignSeries(symbols, series)
	covariance := returns.BuildCovarianceMatrix(symbols, aligned)

	simulated := simulatePortfolioReturns(snapshot, aligned, covariance, simulations, seed)
	sort.Float64s(simulated)

	worstReturn := stat.Quantile(1-confidence, stat.Empirical, simulated, nil)
	bestReturn := stat.Quantile(confidence, stat.Empirical, simulated, nil)

	result := Result{
		ValueBefore: snapshot.TotalValue,
		ValueAfter:  snapshot.TotalValue * (1 + worstReturn),
		Simulations: simulations,
		Seed:        seed,
		Percentiles: make(map[string]float64, len(percentileLadder)),
	}
	result.AbsoluteLoss = result.ValueBefore - result.ValueAfter
	result.PercentageLoss = result.AbsoluteLoss / result.ValueBefore
	result.WorstCaseLoss = result.AbsoluteLoss
	result.BestCaseGain = snapshot.TotalValue * bestReturn

	for _, p := range percentileLadder {
		key := fmt.Sprintf("p%02.0f", p*100)
		result.Percentiles[key] = stat.Quantile(p, stat.Empirical, simulated, nil)
	}

	// position impacts at the worst-case quantile, shocked uniformly
	for _, pos := range snapshot.Positions {
		after := pos.MarketValue * (1 + worstReturn)
		result.PositionImpacts = append(result.PositionImpacts, PositionImpact{
			Symbol:      pos.Symbol,
			Name:        pos.Name,
			Weight:      pos.Weight,
			Shock:       worstReturn,
			ValueBefore: pos.MarketValue,
			ValueAfter:  after,
			Loss:        pos.MarketValue - after,
		})
	}

	return result, nil
}

// simulatePortfolioReturns draws correlated joint return vectors using
// the Cholesky factor of the covariance matrix, falling back to
// independent per-symbol draws when the matrix cannot be factorized.
func simulatePortfolioReturns(snapshot domain.PortfolioSnapshot, aligned map[string][]float64, covariance returns.CovarianceMatrix, simulations int, seed uint64) []float64 {
	symbols := snapshot.Symbols()
	n := len(symbols)

	means := make([]float64, n)
	stddevs := make([]float64, n)
	for i, s := range symbols {
		means[i] = formulas.Mean(aligned[s])
		stddevs[i] = formulas.StdDev(aligned[s])
	}
	weights := make([]float64, n)
	for i, p := range snapshot.Positions {
		weights[i] = p.Weight
	}

	var lower *mat.TriDense
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, covariance.Data[i][j])
		}
	}
	var chol mat.Cholesky
	if chol.Factorize(sym) {
		lower = &mat.TriDense{}
		chol.LTo(lower)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}

	simulated := make([]float64, simulations)
	draws := mat.NewVecDense(n, nil)
	correlated := mat.NewVecDense(n, nil)
	for sim := 0; sim < simulations; sim++ {
		portfolioReturn := 0.0
		if lower != nil {
			for i := 0; i < n; i++ {
				draws.SetVec(i, normal.Rand())
			}
			correlated.MulVec(lower, draws)
			for i := 0; i < n; i++ {
				portfolioReturn += weights[i] * (means[i] + correlated.AtVec(i))
			}
		} else {
			for i := 0; i < n; i++ {
				portfolioReturn += weights[i] * (means[i] + stddevs[i]*normal.Rand())
			}
		}
		simulated[sim] = portfolioReturn
	}
	return simulated
}
