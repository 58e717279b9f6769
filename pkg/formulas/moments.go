package formulas

import "math"

// Skewness calculates the third standardized moment of a return series
// (population form). Returns 0 when the series is degenerate.
func Skewness(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := Mean(returns)
	sd := StdDev(returns)
	if sd == 0 {
		return 0
	}

	sum := 0.0
	for _, r := range returns {
		z := (r - mean) / sd
		sum += z * z * z
	}
	return sum / float64(len(returns))
}

// ExcessKurtosis calculates the fourth standardized moment minus 3
// (population form). Returns 0 when the series is degenerate.
func ExcessKurtosis(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := Mean(returns)
	sd := StdDev(returns)
	if sd == 0 {
		return 0
	}

	sum := 0.0
	for _, r := range returns {
		z := (r - mean) / sd
		sum += math.Pow(z, 4)
	}
	return sum/float64(len(returns)) - 3
}
