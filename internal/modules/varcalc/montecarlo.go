package varcalc

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/aristath/riskwatch/internal/domain"
	"github.com/aristath/riskwatch/internal/modules/returns"
	"github.com/aristath/riskwatch/pkg/formulas"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	choleskyJitterAttempts = 3
	choleskyJitterBase     = 1e-10

	correlationCholesky    = "cholesky"
	correlationJittered    = "jittered"
	correlationIndependent = "independent"
)

// monteCarloVaR simulates correlated daily portfolio returns and applies
// the historical quantile estimator to the simulated distribution.
// Correlation uses the Cholesky factor of the sample covariance matrix;
// a near-singular matrix is retried with diagonal jitter, and if that
// still fails the draws fall back to independent per-symbol normals.
// The mode used is recorded in the diagnostics.
func (c *Calculator) monteCarloVaR(snapshot domain.PortfolioSnapshot, aligned map[string][]float64, params Params, diag *Diagnostics) (varPct, esPct float64, err error) {
	seed := params.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	diag.Seed = seed
	diag.Simulations = params.Simulations

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

	covariance := returns.BuildCovarianceMatrix(symbols, aligned)
	chol, mode := factorCovariance(covariance)
	diag.CorrelationMode = mode

	rng := rand.New(rand.NewPCG(seed, seed))
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}

	simulated := make([]float64, params.Simulations)
	draws := mat.NewVecDense(n, nil)
	correlated := mat.NewVecDense(n, nil)
	for sim := 0; sim < params.Simulations; sim++ {
		portfolioReturn := 0.0
		if chol != nil {
			for i := 0; i < n; i++ {
				draws.SetVec(i, normal.Rand())
			}
			correlated.MulVec(chol, draws)
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

	varPct, esPct = historicalVaR(simulated, params.ConfidenceLevel)
	diag.StandardError = standardError(simulated, params.ConfidenceLevel)
	return varPct, esPct, nil
}

// factorCovariance returns the lower Cholesky factor of the covariance
// matrix, or nil when no valid factorization exists (callers then draw
// independently). Zero rows from symbols without data are tolerated via
// jitter.
func factorCovariance(covariance returns.CovarianceMatrix) (*mat.TriDense, string) {
	n := covariance.Dim()
	if n == 0 {
		return nil, correlationIndependent
	}

	sym := mat.NewSymDense(n, nil)
	maxDiag := 0.0
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, covariance.Data[i][j])
		}
		if covariance.Data[i][i] > maxDiag {
			maxDiag = covariance.Data[i][i]
		}
	}

	var chol mat.Cholesky
	if chol.Factorize(sym) {
		lower := &mat.TriDense{}
		chol.LTo(lower)
		return lower, correlationCholesky
	}

	jitter := choleskyJitterBase
	if maxDiag > 0 {
		jitter = maxDiag * 1e-8
	}
	for attempt := 0; attempt < choleskyJitterAttempts; attempt++ {
		for i := 0; i < n; i++ {
			sym.SetSym(i, i, sym.At(i, i)+jitter)
		}
		if chol.Factorize(sym) {
			lower := &mat.TriDense{}
			chol.LTo(lower)
			return lower, correlationJittered
		}
		jitter *= 10
	}

	return nil, correlationIndependent
}

// standardError estimates the Monte Carlo standard error of the VaR
// quantile for a simulated distribution, useful for sizing runs.
func standardError(simulated []float64, confidence float64) float64 {
	if len(simulated) == 0 {
		return 0
	}
	p := 1 - confidence
	return math.Sqrt(p*(1-p)/float64(len(simulated))) * formulas.StdDev(simulated)
}
