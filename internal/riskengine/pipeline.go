// Package riskengine orchestrates the per-portfolio evaluation pipeline:
// snapshot, return series, VaR, descriptive metrics, and alert
// evaluation, in that strict order against one immutable snapshot.
package riskengine

import (
	"context"
	"fmt"
	"sync"

	"github.com/aristath/riskwatch/internal/config"
	"github.com/aristath/riskwatch/internal/domain"
	"github.com/aristath/riskwatch/internal/modules/alerts"
	"github.com/aristath/riskwatch/internal/modules/portfolio"
	"github.com/aristath/riskwatch/internal/modules/returns"
	"github.com/aristath/riskwatch/internal/modules/riskmetrics"
	"github.com/aristath/riskwatch/internal/modules/snapshots"
	"github.com/aristath/riskwatch/internal/modules/varcalc"
	"github.com/rs/zerolog"
)

// maxConcurrentEvaluations bounds the worker pool for batch runs.
// Portfolios are independent units of work with no cross-portfolio
// coordination.
const maxConcurrentEvaluations = 4

// MethodForMonitoring is the VaR method used for scheduled evaluations.
const MethodForMonitoring = varcalc.MethodHistorical

// Report is the outcome of one portfolio evaluation.
type Report struct {
	PortfolioID int64                    `json:"portfolioId"`
	Snapshot    domain.PortfolioSnapshot `json:"snapshot"`
	VaR         *varcalc.Result          `json:"var,omitempty"`
	Metrics     riskmetrics.Report       `json:"metrics"`
	RiskMetrics domain.RiskMetrics       `json:"riskMetrics"`
	Evaluations []alerts.Evaluation      `json:"evaluations,omitempty"`
	Err         error                    `json:"-"`
}

// Pipeline wires the risk modules into the evaluation sequence.
type Pipeline struct {
	builder    *portfolio.SnapshotBuilder
	estimator  *returns.Estimator
	calculator *varcalc.Calculator
	metrics    *riskmetrics.Computer
	alerts     *alerts.Engine
	results    *snapshots.Repository
	store      domain.PortfolioStore
	cfg        config.RiskConfig
	log        zerolog.Logger
}

// NewPipeline creates a new evaluation pipeline. results may be nil to
// skip persistence (used by ad-hoc calculations that should not pollute
// the audit trail).
func NewPipeline(
	builder *portfolio.SnapshotBuilder,
	estimator *returns.Estimator,
	calculator *varcalc.Calculator,
	metrics *riskmetrics.Computer,
	alertEngine *alerts.Engine,
	results *snapshots.Repository,
	store domain.PortfolioStore,
	cfg config.RiskConfig,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		builder:    builder,
		estimator:  estimator,
		calculator: calculator,
		metrics:    metrics,
		alerts:     alertEngine,
		results:    results,
		store:      store,
		cfg:        cfg,
		log:        log.With().Str("service", "riskengine").Logger(),
	}
}

// Evaluate runs the full pipeline for one portfolio. The snapshot
// captured at the start is the one every stage sees.
func (p *Pipeline) Evaluate(ctx context.Context, ownerID, portfolioID int64) (Report, error) {
	snapshot, err := p.builder.Build(ctx, ownerID, portfolioID)
	if err != nil {
		return Report{PortfolioID: portfolioID}, err
	}
	return p.evaluateSnapshot(ctx, snapshot)
}

func (p *Pipeline) evaluateSnapshot(ctx context.Context, snapshot domain.PortfolioSnapshot) (Report, error) {
	report := Report{PortfolioID: snapshot.PortfolioID, Snapshot: snapshot}
	if snapshot.IsDegenerate() {
		return report, varcalc.ErrDegeneratePortfolio
	}

	symbols := snapshot.Symbols()
	series := p.estimator.EstimateReturns(ctx, symbols, p.cfg.LookbackDays)
	portfolioSeries := returns.PortfolioSeries(snapshot, series)

	varResult, err := p.calculator.Calculate(ctx, snapshot, varcalc.Params{Method: MethodForMonitoring})
	if err != nil {
		return report, fmt.Errorf("failed to calculate VaR: %w", err)
	}
	report.VaR = &varResult
	if p.results != nil {
		if _, err := p.results.SaveVaRResult(ctx, snapshot.OwnerID, varResult); err != nil {
			p.log.Error().Err(err).Int64("portfolio_id", snapshot.PortfolioID).Msg("Failed to persist VaR result")
		}
	}

	report.Metrics = p.metrics.Compute(portfolioSeries)
	report.RiskMetrics = domain.RiskMetrics{
		PortfolioValue: snapshot.TotalValue,
		CurrentVaR:     varResult.VaRAmount,
		Volatility:     report.Metrics.AnnualizedVolatility,
		MaxDrawdown:    report.Metrics.MaxDrawdown,
		Concentration:  maxWeight(snapshot),
		MonitoringTime: snapshot.CapturedAt,
	}

	if p.results != nil {
		// daily P&L against yesterday's monitoring row, when one exists
		yesterday := snapshot.CapturedAt.AddDate(0, 0, -1).Format("2006-01-02")
		previous, err := p.results.GetMonitoringStatus(ctx, snapshot.PortfolioID, yesterday)
		if err != nil {
			p.log.Warn().Err(err).Int64("portfolio_id", snapshot.PortfolioID).Msg("Failed to load previous monitoring status")
		} else if previous != nil && previous.PortfolioValue > 0 {
			report.RiskMetrics.DailyPnL = snapshot.TotalValue - previous.PortfolioValue
			report.RiskMetrics.DailyPnLPercentage = report.RiskMetrics.DailyPnL / previous.PortfolioValue
		}
	}

	evaluations, err := p.alerts.EvaluatePortfolio(ctx, snapshot.OwnerID, snapshot.PortfolioID, report.RiskMetrics)
	if err != nil {
		return report, fmt.Errorf("failed to evaluate alerts: %w", err)
	}
	report.Evaluations = evaluations

	return report, nil
}

// EvaluateAll evaluates every portfolio of an owner on a bounded worker
// pool. A failing portfolio is reported with its error and does not stop
// the others.
func (p *Pipeline) EvaluateAll(ctx context.Context, ownerID int64) ([]Report, error) {
	records, err := p.store.ListPortfolios(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}

	reports := make([]Report, len(records))
	sem := make(chan struct{}, maxConcurrentEvaluations)
	var wg sync.WaitGroup

	for i, record := range records {
		wg.Add(1)
		go func(i int, portfolioID int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			report, err := p.Evaluate(ctx, ownerID, portfolioID)
			report.Err = err
			if err != nil {
				p.log.Error().Err(err).Int64("portfolio_id", portfolioID).Msg("Portfolio evaluation failed")
			}
			reports[i] = report
		}(i, record.ID)
	}
	wg.Wait()

	return reports, nil
}

func maxWeight(snapshot domain.PortfolioSnapshot) float64 {
	max := 0.0
	for _, p := range snapshot.Positions {
		if p.Weight > max {
			max = p.Weight
		}
	}
	return max
}
