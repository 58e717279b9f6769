package formulas

import "gonum.org/v1/gonum/stat/distuv"

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// ZScore returns the standard-normal quantile for a confidence level,
// e.g. 0.90 → 1.282, 0.95 → 1.645, 0.99 → 2.326.
// Confidence levels outside (0, 1) return 0.
func ZScore(confidence float64) float64 {
	if confidence <= 0 || confidence >= 1 {
		return 0
	}
	return stdNormal.Quantile(confidence)
}

// NormalPDF returns the standard-normal density at z.
func NormalPDF(z float64) float64 {
	return stdNormal.Prob(z)
}

// NormalCDF returns the standard-normal cumulative probability at z.
func NormalCDF(z float64) float64 {
	return stdNormal.CDF(z)
}
