package snapshots

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/aristath/riskwatch/internal/database"
	"github.com/aristath/riskwatch/internal/domain"
	"github.com/aristath/riskwatch/internal/modules/stress"
	"github.com/aristath/riskwatch/internal/modules/varcalc"
	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(database.RiskSchema)
	require.NoError(t, err)
	return db
}

func sampleVaRResult(portfolioID int64, computedAt time.Time) varcalc.Result {
	return varcalc.Result{
		PortfolioID:     portfolioID,
		Method:          varcalc.MethodHistorical,
		ConfidenceLevel: 0.95,
		HorizonDays:     1,
		LookbackDays:    252,
		PortfolioValue:  1_000_000,
		VaRAmount:       17_000,
		VaRPct:          0.017,
		ESAmount:        21_000,
		ESPct:           0.021,
		Components: []varcalc.Component{
			{Symbol: "AAA", Weight: 0.6, VaRAmount: 11_000, Contribution: 11.0 / 17.0},
			{Symbol: "BBB", Weight: 0.4, VaRAmount: 6_000, Contribution: 6.0 / 17.0},
		},
		Diagnostics: varcalc.Diagnostics{Observations: 252, DailyVolatility: 0.0103},
		ComputedAt:  computedAt,
	}
}

func TestVaRResultRoundTrip(t *testing.T) {
	repo := NewRepository(openTestDB(t), zerolog.Nop())
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	id, err := repo.SaveVaRResult(ctx, 1, sampleVaRResult(7, now))
	require.NoError(t, err)
	assert.NotZero(t, id)

	latest, err := repo.LatestVaR(ctx, 1, 7)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 17_000.0, latest.VaRAmount)
	assert.Equal(t, varcalc.MethodHistorical, latest.Method)
	assert.Equal(t, now, latest.CalculationDate)
	require.Len(t, latest.Components, 2)
	assert.Equal(t, "AAA", latest.Components[0].Symbol)
	assert.Equal(t, 252, latest.Diagnostics.Observations)
}

func TestLatestVaRNilWhenEmpty(t *testing.T) {
	repo := NewRepository(openTestDB(t), zerolog.Nop())

	latest, err := repo.LatestVaR(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestVaRHistoryOrderingAndLimit(t *testing.T) {
	repo := NewRepository(openTestDB(t), zerolog.Nop())
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second).Add(-72 * time.Hour)
	for day := 0; day < 5; day++ {
		result := sampleVaRResult(7, base.Add(time.Duration(day)*24*time.Hour))
		result.VaRAmount = float64(day)
		_, err := repo.SaveVaRResult(ctx, 1, result)
		require.NoError(t, err)
	}

	history, err := repo.ListVaRHistory(ctx, 1, 7, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 4.0, history[0].VaRAmount, "most recent first")
	assert.Equal(t, 2.0, history[2].VaRAmount)

	history, err = repo.ListVaRHistory(ctx, 2, 7, 10)
	require.NoError(t, err)
	assert.Empty(t, history, "other owners see nothing")
}

func TestStressResultRoundTrip(t *testing.T) {
	repo := NewRepository(openTestDB(t), zerolog.Nop())
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	result := stress.Result{
		PortfolioID:    7,
		ScenarioID:     "crash-replay",
		ScenarioType:   stress.ScenarioMonteCarlo,
		ValueBefore:    1_000_000,
		ValueAfter:     940_000,
		AbsoluteLoss:   60_000,
		PercentageLoss: 0.06,
		WorstCaseLoss:  60_000,
		BestCaseGain:   35_000,
		PositionImpacts: []stress.PositionImpact{
			{Symbol: "AAA", Shock: -0.06, ValueBefore: 600_000, ValueAfter: 564_000, Loss: 36_000},
		},
		Sensitivity: []stress.PositionSensitivity{
			{Symbol: "AAA", Points: []stress.SensitivityPoint{{Shock: -0.3, Impact: -180_000, PortfolioValue: 820_000}}},
		},
		Percentiles: map[string]float64{"p01": -0.09, "p50": 0.0, "p99": 0.08},
		Simulations: 10_000,
		Seed:        42,
		ComputedAt:  now,
	}

	id, err := repo.SaveStressResult(ctx, 1, result)
	require.NoError(t, err)
	assert.NotZero(t, id)

	history, err := repo.ListStressHistory(ctx, 1, 7, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)

	record := history[0]
	assert.Equal(t, stress.ScenarioMonteCarlo, record.ScenarioType)
	assert.Equal(t, 0.06, record.PercentageLoss)
	assert.Equal(t, now, record.TestDate)
	require.Len(t, record.PositionImpacts, 1)
	assert.Equal(t, -0.06, record.PositionImpacts[0].Shock)
	require.Len(t, record.Sensitivity, 1)
	assert.Equal(t, -0.3, record.Sensitivity[0].Points[0].Shock)
	assert.Equal(t, -0.09, record.Details.Percentiles["p01"])
	assert.Equal(t, uint64(42), record.Details.Seed)
}

func TestMonitoringStatusUpsert(t *testing.T) {
	repo := NewRepository(openTestDB(t), zerolog.Nop())
	ctx := context.Background()

	metrics := domain.RiskMetrics{
		PortfolioValue:     1_000_000,
		DailyPnL:           -5_000,
		DailyPnLPercentage: -0.005,
		CurrentVaR:         17_000,
		Volatility:         0.16,
		MaxDrawdown:        0.08,
		Concentration:      0.6,
	}
	require.NoError(t, repo.UpsertMonitoringStatus(ctx, 1, 7, "2026-08-31", metrics, 2))

	stored, err := repo.GetMonitoringStatus(ctx, 7, "2026-08-31")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, -5_000.0, stored.DailyPnL)
	assert.Equal(t, 0.6, stored.Concentration)

	// same day overwrites instead of duplicating
	metrics.DailyPnL = 3_000
	require.NoError(t, repo.UpsertMonitoringStatus(ctx, 1, 7, "2026-08-31", metrics, 0))

	stored, err = repo.GetMonitoringStatus(ctx, 7, "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, 3_000.0, stored.DailyPnL)

	missing, err := repo.GetMonitoringStatus(ctx, 7, "2026-09-01")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
