package varcalc

import (
	"github.com/aristath/riskwatch/internal/domain"
	"github.com/aristath/riskwatch/pkg/formulas"
)

// decompose splits the portfolio VaR into per-position components using
// the covariance-beta form: component_i = w_i * cov(r_i, r_p) / var(r_p)
// * VaR. Because cov is bilinear and the portfolio series is the weighted
// sum of the aligned position series, the components sum to the portfolio
// VaR exactly. A zero-variance portfolio yields all-zero components.
func decompose(snapshot domain.PortfolioSnapshot, aligned map[string][]float64, portfolioSeries []float64, portfolioVaRPct float64) []Component {
	portfolioVariance := formulas.Variance(portfolioSeries)
	totalVaRAmount := portfolioVaRPct * snapshot.TotalValue

	components := make([]Component, 0, len(snapshot.Positions))
	for _, p := range snapshot.Positions {
		comp := Component{
			Symbol:      p.Symbol,
			Name:        p.Name,
			Weight:      p.Weight,
			MarketValue: p.MarketValue,
		}

		if portfolioVariance > 0 {
			beta := formulas.Covariance(aligned[p.Symbol], portfolioSeries) / portfolioVariance
			comp.VaRPct = p.Weight * beta * portfolioVaRPct
			comp.VaRAmount = comp.VaRPct * snapshot.TotalValue
		}
		if totalVaRAmount != 0 {
			comp.Contribution = comp.VaRAmount / totalVaRAmount
		}

		components = append(components, comp)
	}
	return components
}
