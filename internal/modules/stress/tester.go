package stress

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/riskwatch/internal/config"
	"github.com/aristath/riskwatch/internal/domain"
	"github.com/aristath/riskwatch/internal/modules/returns"
	"github.com/aristath/riskwatch/pkg/formulas"
	"github.com/rs/zerolog"
)

// sensitivityLadder is the fixed set of hypothetical per-position price
// shocks evaluated for every scenario type.
var sensitivityLadder = []float64{-0.30, -0.20, -0.10, -0.05, 0, 0.05, 0.10, 0.20, 0.30}

// Tester runs stress test scenarios.
type Tester struct {
	history   domain.PriceHistoryProvider
	estimator *returns.Estimator
	cfg       config.RiskConfig
	log       zerolog.Logger
}

// NewTester creates a new stress tester.
func NewTester(history domain.PriceHistoryProvider, estimator *returns.Estimator, cfg config.RiskConfig, log zerolog.Logger) *Tester {
	return &Tester{
		history:   history,
		estimator: estimator,
		cfg:       cfg,
		log:       log.With().Str("service", "stress").Logger(),
	}
}

// Run executes a scenario against a snapshot. The per-position
// sensitivity analysis is always computed, independent of the scenario's
// own shocks.
func (t *Tester) Run(ctx context.Context, snapshot domain.PortfolioSnapshot, scenario Scenario) (Result, error) {
	if snapshot.IsDegenerate() {
		return Result{}, ErrDegeneratePortfolio
	}

	var result Result
	var err error
	switch scenario.Type {
	case ScenarioHistorical:
		result, err = t.runHistorical(ctx, snapshot, scenario)
	case ScenarioHypothetical:
		result = t.runHypothetical(snapshot, scenario)
	case ScenarioMonteCarlo:
		result, err = t.runMonteCarlo(ctx, snapshot, scenario)
	default:
		return Result{}, ErrUnknownScenario
	}
	if err != nil {
		return Result{}, err
	}

	result.PortfolioID = snapshot.PortfolioID
	result.ScenarioID = scenario.ID
	result.ScenarioType = scenario.Type
	result.Sensitivity = sensitivityAnalysis(snapshot)
	result.ComputedAt = time.Now().UTC()

	t.log.Debug().
		Int64("portfolio_id", snapshot.PortfolioID).
		Str("scenario", scenario.ID).
		Str("type", string(scenario.Type)).
		Float64("loss", result.AbsoluteLoss).
		Msg("Stress test completed")

	return result, nil
}

// runHistorical replays each named window: every position takes its own
// maximum peak-to-trough drawdown observed inside the window. The window
// with the largest portfolio loss is reported as the headline result, the
// smallest as the best case.
func (t *Tester) runHistorical(ctx context.Context, snapshot domain.PortfolioSnapshot, scenario Scenario) (Result, error) {
	if len(scenario.Windows) == 0 {
		return Result{}, ErrNoWindows
	}

	result := Result{ValueBefore: snapshot.TotalValue}

	worstLoss := 0.0
	bestLoss := 0.0
	first := true
	for _, window := range scenario.Windows {
		impacts, valueAfter, err := t.replayWindow(ctx, snapshot, window)
		if err != nil {
			return Result{}, fmt.Errorf("failed to replay window %q: %w", window.Name, err)
		}

		loss := snapshot.TotalValue - valueAfter
		result.WindowOutcomes = append(result.WindowOutcomes, WindowOutcome{
			Name:           window.Name,
			AbsoluteLoss:   loss,
			PercentageLoss: loss / snapshot.TotalValue,
		})

		if first || loss > worstLoss {
			worstLoss = loss
			result.ValueAfter = valueAfter
			result.PositionImpacts = impacts
		}
		if first || loss < bestLoss {
			bestLoss = loss
		}
		first = false
	}

	result.AbsoluteLoss = worstLoss
	result.PercentageLoss = worstLoss / snapshot.TotalValue
	result.WorstCaseLoss = worstLoss
	result.BestCaseGain = -bestLoss
	return result, nil
}

func (t *Tester) replayWindow(ctx context.Context, snapshot domain.PortfolioSnapshot, window DateRange) ([]PositionImpact, float64, error) {
	impacts := make([]PositionImpact, 0, len(snapshot.Positions))
	valueAfter := 0.0

	for _, p := range snapshot.Positions {
		candles, err := t.history.GetHistory(ctx, p.Symbol, window.Start, window.End)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to fetch history for %s: %w", p.Symbol, err)
		}

		closes := make([]float64, len(candles))
		for i, c := range candles {
			closes[i] = c.Close
		}
		drawdown := formulas.MaxDrawdownFromValues(closes)

		after := p.MarketValue * (1 - drawdown)
		impacts = append(impacts, PositionImpact{
			Symbol:      p.Symbol,
			Name:        p.Name,
			Weight:      p.Weight,
			Shock:       -drawdown,
			ValueBefore: p.MarketValue,
			ValueAfter:  after,
			Loss:        p.MarketValue - after,
		})
		valueAfter += after
	}

	return impacts, valueAfter, nil
}

// runHypothetical applies declared shock factors directly to position
// values. Shock resolution order is symbol, then sector, then the
// market-wide shock.
func (t *Tester) runHypothetical(snapshot domain.PortfolioSnapshot, scenario Scenario) Result {
	result := Result{ValueBefore: snapshot.TotalValue}

	for _, p := range snapshot.Positions {
		shock := resolveShock(p, scenario)
		after := p.MarketValue * (1 + shock)
		result.PositionImpacts = append(result.PositionImpacts, PositionImpact{
			Symbol:      p.Symbol,
			Name:        p.Name,
			Weight:      p.Weight,
			Shock:       shock,
			ValueBefore: p.MarketValue,
			ValueAfter:  after,
			Loss:        p.MarketValue - after,
		})
		result.ValueAfter += after
	}

	result.AbsoluteLoss = result.ValueBefore - result.ValueAfter
	result.PercentageLoss = result.AbsoluteLoss / result.ValueBefore
	result.WorstCaseLoss = result.AbsoluteLoss
	result.BestCaseGain = -result.AbsoluteLoss
	return result
}

func resolveShock(p domain.Position, scenario Scenario) float64 {
	if shock, ok := scenario.SymbolShocks[p.Symbol]; ok {
		return shock
	}
	if shock, ok := scenario.SectorShocks[p.Sector]; ok {
		return shock
	}
	return scenario.MarketShock
}

// sensitivityAnalysis evaluates the fixed shock ladder against each
// position in isolation.
func sensitivityAnalysis(snapshot domain.PortfolioSnapshot) []PositionSensitivity {
	sensitivity := make([]PositionSensitivity, 0, len(snapshot.Positions))
	for _, p := range snapshot.Positions {
		points := make([]SensitivityPoint, 0, len(sensitivityLadder))
		for _, shock := range sensitivityLadder {
			impact := p.MarketValue * shock
			points = append(points, SensitivityPoint{
				Shock:          shock,
				Impact:         impact,
				PortfolioValue: snapshot.TotalValue + impact,
			})
		}
		sensitivity = append(sensitivity, PositionSensitivity{Symbol: p.Symbol, Points: points})
	}
	return sensitivity
}
