package stress

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/riskwatch/internal/config"
	"github.com/aristath/riskwatch/internal/domain"
	"github.com/aristath/riskwatch/internal/modules/returns"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyStub struct {
	candles map[string][]domain.Candle
}

func (s *historyStub) GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.Candle, error) {
	return s.candles[symbol], nil
}

func candlesFromCloses(closes []float64) []domain.Candle {
	candles := make([]domain.Candle, len(closes))
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = domain.Candle{
			Date:  base.AddDate(0, 0, i).Format("2006-01-02"),
			Close: c,
		}
	}
	return candles
}

func testSnapshot() domain.PortfolioSnapshot {
	return domain.PortfolioSnapshot{
		PortfolioID: 1,
		OwnerID:     1,
		TotalValue:  1_000_000,
		Positions: []domain.Position{
			{Symbol: "AAA", Sector: "tech", MarketValue: 600_000, Weight: 0.6},
			{Symbol: "BBB", Sector: "energy", MarketValue: 400_000, Weight: 0.4},
		},
		CapturedAt: time.Now().UTC(),
	}
}

func newTester(provider domain.PriceHistoryProvider) *Tester {
	cfg := config.RiskConfig{
		LookbackDays:    252,
		ConfidenceLevel: 0.95,
		HorizonDays:     1,
		Simulations:     5000,
	}
	estimator := returns.NewEstimator(provider, zerolog.Nop())
	return NewTester(provider, estimator, cfg, zerolog.Nop())
}

func TestHypotheticalZeroShockIsNoOp(t *testing.T) {
	tester := newTester(&historyStub{})
	snapshot := testSnapshot()

	result, err := tester.Run(context.Background(), snapshot, Scenario{
		ID:   "flat",
		Type: ScenarioHypothetical,
	})
	require.NoError(t, err)

	assert.Equal(t, snapshot.TotalValue, result.ValueAfter)
	assert.Equal(t, 0.0, result.AbsoluteLoss)
	assert.Equal(t, 0.0, result.PercentageLoss)
}

func TestHypotheticalTotalWipeout(t *testing.T) {
	tester := newTester(&historyStub{})
	snapshot := testSnapshot()

	result, err := tester.Run(context.Background(), snapshot, Scenario{
		ID:          "wipeout",
		Type:        ScenarioHypothetical,
		MarketShock: -1.0,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.ValueAfter)
	assert.Equal(t, 1.0, result.PercentageLoss)
	assert.Equal(t, snapshot.TotalValue, result.AbsoluteLoss)
}

func TestHypotheticalShockPrecedence(t *testing.T) {
	tester := newTester(&historyStub{})
	snapshot := testSnapshot()

	result, err := tester.Run(context.Background(), snapshot, Scenario{
		ID:           "mixed",
		Type:         ScenarioHypothetical,
		SymbolShocks: map[string]float64{"AAA": -0.10},
		SectorShocks: map[string]float64{"tech": -0.50, "energy": -0.20},
		MarketShock:  -0.99,
	})
	require.NoError(t, err)
	require.Len(t, result.PositionImpacts, 2)

	// AAA resolved by symbol, BBB by sector; market shock unused
	assert.Equal(t, -0.10, result.PositionImpacts[0].Shock)
	assert.Equal(t, -0.20, result.PositionImpacts[1].Shock)
	assert.InDelta(t, 600_000*0.9+400_000*0.8, result.ValueAfter, 1e-9)
}

func TestHistoricalReplayPicksWorstWindow(t *testing.T) {
	provider := &historyStub{candles: map[string][]domain.Candle{
		// halves then fully recovers: max drawdown 0.5
		"AAA": candlesFromCloses([]float64{100, 50, 100}),
		// mild dip: max drawdown 0.1
		"BBB": candlesFromCloses([]float64{100, 90, 95}),
	}}
	tester := newTester(provider)
	snapshot := testSnapshot()

	result, err := tester.Run(context.Background(), snapshot, Scenario{
		ID:   "crash-replay",
		Type: ScenarioHistorical,
		Windows: []DateRange{{
			Name:  "crash",
			Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		}},
	})
	require.NoError(t, err)

	// AAA loses 50%, BBB loses 10%
	expectedAfter := 600_000*0.5 + 400_000*0.9
	assert.InDelta(t, expectedAfter, result.ValueAfter, 1e-9)
	assert.InDelta(t, (1_000_000-expectedAfter)/1_000_000, result.PercentageLoss, 1e-12)
	require.Len(t, result.WindowOutcomes, 1)
	assert.Equal(t, "crash", result.WindowOutcomes[0].Name)
	require.Len(t, result.PositionImpacts, 2)
	assert.InDelta(t, -0.5, result.PositionImpacts[0].Shock, 1e-12)
}

func TestHistoricalRequiresWindows(t *testing.T) {
	tester := newTester(&historyStub{})

	_, err := tester.Run(context.Background(), testSnapshot(), Scenario{Type: ScenarioHistorical})
	assert.ErrorIs(t, err, ErrNoWindows)
}

func TestMonteCarloDeterministicWithSeed(t *testing.T) {
	provider := &historyStub{candles: map[string][]domain.Candle{
		"AAA": candlesFromCloses([]float64{100, 101, 99, 102, 98, 103, 97, 104}),
		"BBB": candlesFromCloses([]float64{50, 51, 49, 52, 48, 53, 47, 54}),
	}}
	tester := newTester(provider)
	snapshot := testSnapshot()

	scenario := Scenario{ID: "mc", Type: ScenarioMonteCarlo, Simulations: 2000, Seed: 99}
	first, err := tester.Run(context.Background(), snapshot, scenario)
	require.NoError(t, err)
	second, err := tester.Run(context.Background(), snapshot, scenario)
	require.NoError(t, err)

	assert.Equal(t, first.ValueAfter, second.ValueAfter)
	assert.Equal(t, first.Percentiles, second.Percentiles)
	assert.Len(t, first.Percentiles, 9)
	assert.Contains(t, first.Percentiles, "p01")
	assert.Contains(t, first.Percentiles, "p99")
	assert.LessOrEqual(t, first.Percentiles["p01"], first.Percentiles["p99"])
	assert.Equal(t, 2000, first.Simulations)
}

func TestSensitivityAlwaysComputed(t *testing.T) {
	tester := newTester(&historyStub{})
	snapshot := testSnapshot()

	result, err := tester.Run(context.Background(), snapshot, Scenario{
		ID:   "flat",
		Type: ScenarioHypothetical,
	})
	require.NoError(t, err)
	require.Len(t, result.Sensitivity, 2)

	points := result.Sensitivity[0].Points
	require.Len(t, points, 9)
	assert.Equal(t, -0.30, points[0].Shock)
	assert.InDelta(t, -180_000, points[0].Impact, 1e-9)
	assert.Equal(t, 0.0, points[4].Shock)
	assert.Equal(t, 0.0, points[4].Impact)
	assert.InDelta(t, 1_180_000, points[8].PortfolioValue, 1e-9)
}

func TestRunValidation(t *testing.T) {
	tester := newTester(&historyStub{})

	_, err := tester.Run(context.Background(), domain.PortfolioSnapshot{}, Scenario{Type: ScenarioHypothetical})
	assert.ErrorIs(t, err, ErrDegeneratePortfolio)

	_, err = tester.Run(context.Background(), testSnapshot(), Scenario{Type: "voodoo"})
	assert.ErrorIs(t, err, ErrUnknownScenario)
}
