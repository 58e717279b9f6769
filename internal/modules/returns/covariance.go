package returns

import "github.com/aristath/riskwatch/pkg/formulas"

// CovarianceMatrix is a symmetric N×N sample covariance matrix over an
// ordered symbol set. Symbols with empty return series contribute zero
// rows/columns: their positions are treated as zero-volatility rather
// than causing failure.
type CovarianceMatrix struct {
	Symbols []string    `json:"symbols"`
	Data    [][]float64 `json:"data"`
}

// BuildCovarianceMatrix computes the pairwise unbiased sample covariance
// over the length-aligned intersection of each series pair. A pair with
// fewer than 2 overlapping points yields covariance 0.
func BuildCovarianceMatrix(symbols []string, series map[string][]float64) CovarianceMatrix {
	n := len(symbols)
	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov := formulas.Covariance(series[symbols[i]], series[symbols[j]])
			data[i][j] = cov
			data[j][i] = cov
		}
	}

	return CovarianceMatrix{Symbols: symbols, Data: data}
}

// Dim returns the matrix dimension.
func (m CovarianceMatrix) Dim() int {
	return len(m.Symbols)
}

// PortfolioVariance computes w'Σw for a weight vector in symbol order.
func (m CovarianceMatrix) PortfolioVariance(weights []float64) float64 {
	variance := 0.0
	for i := range m.Data {
		if i >= len(weights) {
			break
		}
		for j := range m.Data[i] {
			if j >= len(weights) {
				break
			}
			variance += weights[i] * weights[j] * m.Data[i][j]
		}
	}
	if variance < 0 {
		// numerical noise on near-singular matrices
		return 0
	}
	return variance
}
