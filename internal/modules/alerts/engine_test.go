package alerts

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/aristath/riskwatch/internal/database"
	"github.com/aristath/riskwatch/internal/domain"
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

type captureNotifier struct {
	calls []string
	fail  bool
}

func (n *captureNotifier) Notify(ctx context.Context, ownerID int64, severity, title, message string, metadata map[string]interface{}) error {
	if n.fail {
		return errors.New("notification channel down")
	}
	n.calls = append(n.calls, title)
	return nil
}

func activeRule(t *testing.T, repo *Repository, rule Rule) Rule {
	t.Helper()
	rule.IsActive = true
	created, err := repo.CreateRule(context.Background(), rule)
	require.NoError(t, err)
	return created
}

func TestVarThresholdZeroAlwaysTriggersOnPositiveVaR(t *testing.T) {
	rule := Rule{Type: RuleVarThreshold, Config: ThresholdConfig{Threshold: 0}}

	evaluation := EvaluateRule(rule, domain.RiskMetrics{CurrentVaR: 0.0001})
	assert.True(t, evaluation.Triggered)

	evaluation = EvaluateRule(rule, domain.RiskMetrics{CurrentVaR: 0})
	assert.False(t, evaluation.Triggered, "zero VaR does not exceed a zero threshold")
}

func TestLossThresholdUsesAbsoluteValue(t *testing.T) {
	// threshold 0.05 and -0.05 behave identically
	for _, threshold := range []float64{0.05, -0.05} {
		rule := Rule{Type: RuleLossThreshold, Config: ThresholdConfig{Threshold: threshold}}

		evaluation := EvaluateRule(rule, domain.RiskMetrics{DailyPnLPercentage: -0.06})
		assert.True(t, evaluation.Triggered, "threshold %v", threshold)

		evaluation = EvaluateRule(rule, domain.RiskMetrics{DailyPnLPercentage: -0.04})
		assert.False(t, evaluation.Triggered, "threshold %v", threshold)

		evaluation = EvaluateRule(rule, domain.RiskMetrics{DailyPnLPercentage: 0.10})
		assert.False(t, evaluation.Triggered, "gains never trigger a loss rule")
	}
}

func TestConcentrationRule(t *testing.T) {
	rule := Rule{Type: RuleConcentrationRisk, Config: ThresholdConfig{Threshold: 0.4}}

	assert.True(t, EvaluateRule(rule, domain.RiskMetrics{Concentration: 0.55}).Triggered)
	assert.False(t, EvaluateRule(rule, domain.RiskMetrics{Concentration: 0.4}).Triggered)
}

func TestCustomRuleOrSemantics(t *testing.T) {
	rule := Rule{Type: RuleCustom, Config: ThresholdConfig{Conditions: []Condition{
		{Metric: "volatility", Operator: OpGreater, Value: 0.5},
		{Metric: "max_drawdown", Operator: OpGreaterEqual, Value: 0.2},
	}}}

	evaluation := EvaluateRule(rule, domain.RiskMetrics{Volatility: 0.1, MaxDrawdown: 0.25})
	assert.True(t, evaluation.Triggered, "one holding condition suffices")
	assert.Contains(t, evaluation.Message, "max_drawdown")
	assert.NotContains(t, evaluation.Message, "volatility")

	evaluation = EvaluateRule(rule, domain.RiskMetrics{Volatility: 0.6, MaxDrawdown: 0.25})
	assert.Contains(t, evaluation.Message, "; ", "all holding conditions are reported")

	evaluation = EvaluateRule(rule, domain.RiskMetrics{Volatility: 0.1, MaxDrawdown: 0.1})
	assert.False(t, evaluation.Triggered)
}

func TestCustomRuleEqualityTolerance(t *testing.T) {
	rule := Rule{Type: RuleCustom, Config: ThresholdConfig{Conditions: []Condition{
		{Metric: "concentration", Operator: OpEqual, Value: 0.5},
	}}}

	assert.True(t, EvaluateRule(rule, domain.RiskMetrics{Concentration: 0.50005}).Triggered)
	assert.False(t, EvaluateRule(rule, domain.RiskMetrics{Concentration: 0.501}).Triggered)
}

func TestCustomRuleUnknownMetricNeverTriggers(t *testing.T) {
	rule := Rule{Type: RuleCustom, Config: ThresholdConfig{Conditions: []Condition{
		{Metric: "beta_to_mars", Operator: OpGreater, Value: 0},
	}}}

	assert.False(t, EvaluateRule(rule, domain.RiskMetrics{Volatility: 99}).Triggered)
}

func TestEvaluatePortfolioPersistsAndNotifies(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	notifier := &captureNotifier{}
	engine := NewEngine(repo, notifier, zerolog.Nop())

	activeRule(t, repo, Rule{
		OwnerID:  1,
		Name:     "var cap",
		Type:     RuleVarThreshold,
		Severity: SeverityCritical,
		Config:   ThresholdConfig{Threshold: 1000},
	})

	evaluations, err := engine.EvaluatePortfolio(context.Background(), 1, 7, domain.RiskMetrics{CurrentVaR: 5000})
	require.NoError(t, err)
	require.Len(t, evaluations, 1)
	assert.True(t, evaluations[0].Triggered)

	logs, err := repo.ListLogs(context.Background(), 1, 7, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, SeverityCritical, logs[0].Severity)
	assert.Equal(t, 5000.0, logs[0].CurrentValue)
	assert.True(t, logs[0].NotificationSent)
	assert.Equal(t, []string{"var cap"}, notifier.calls)
}

func TestEvaluatePortfolioNotificationFailureKeepsLog(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	engine := NewEngine(repo, &captureNotifier{fail: true}, zerolog.Nop())

	activeRule(t, repo, Rule{OwnerID: 1, Name: "var cap", Type: RuleVarThreshold})

	_, err := engine.EvaluatePortfolio(context.Background(), 1, 7, domain.RiskMetrics{CurrentVaR: 1})
	require.NoError(t, err)

	logs, err := repo.ListLogs(context.Background(), 1, 7, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1, "log row survives notification failure")
	assert.False(t, logs[0].NotificationSent)
}

func TestInactiveRuleNeverEvaluated(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	engine := NewEngine(repo, nil, zerolog.Nop())

	rule, err := repo.CreateRule(context.Background(), Rule{
		OwnerID: 1, Name: "dormant", Type: RuleVarThreshold, IsActive: false,
	})
	require.NoError(t, err)

	evaluations, err := engine.EvaluatePortfolio(context.Background(), 1, 7, domain.RiskMetrics{CurrentVaR: 1e9})
	require.NoError(t, err)
	assert.Empty(t, evaluations)

	logs, err := repo.ListLogs(context.Background(), 1, 7, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
	_ = rule
}

func TestPortfolioScopedRule(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	engine := NewEngine(repo, nil, zerolog.Nop())

	scoped := int64(7)
	activeRule(t, repo, Rule{OwnerID: 1, Name: "scoped", Type: RuleVarThreshold, PortfolioID: &scoped})
	activeRule(t, repo, Rule{OwnerID: 1, Name: "global", Type: RuleVarThreshold})

	evaluations, err := engine.EvaluatePortfolio(context.Background(), 1, 7, domain.RiskMetrics{CurrentVaR: 1})
	require.NoError(t, err)
	assert.Len(t, evaluations, 2)

	evaluations, err = engine.EvaluatePortfolio(context.Background(), 1, 8, domain.RiskMetrics{CurrentVaR: 1})
	require.NoError(t, err)
	assert.Len(t, evaluations, 1, "portfolio 8 sees only the owner-wide rule")
}
