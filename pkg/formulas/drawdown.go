package formulas

// MaxDrawdownFromReturns calculates the maximum peak-to-trough drawdown of
// the cumulative-return path implied by a daily return series.
// Result is a fraction in [0, 1]: 0.5 means the path lost half its value
// from a peak before recovering (or not).
func MaxDrawdownFromReturns(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumulative := 1.0
	peak := 1.0
	maxDrawdown := 0.0

	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		if peak > 0 {
			drawdown := (peak - cumulative) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}

// MaxDrawdownFromValues calculates the maximum peak-to-trough drawdown over
// an ordered series of values (prices or portfolio valuations). The peak
// must precede the trough; a falling-then-recovering path reports the
// deepest ordered decline, not (max-min)/max.
func MaxDrawdownFromValues(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	peak := values[0]
	maxDrawdown := 0.0

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdown := (peak - v) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}
