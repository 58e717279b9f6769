package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleCRUD(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	created, err := repo.CreateRule(ctx, Rule{
		OwnerID:  1,
		Name:     "volatility cap",
		Type:     RuleVolatilityThreshold,
		Config:   ThresholdConfig{Threshold: 0.35},
		IsActive: true,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, SeverityWarning, created.Severity, "severity defaults to warning")

	fetched, err := repo.GetRule(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "volatility cap", fetched.Name)
	assert.Equal(t, 0.35, fetched.Config.Threshold)
	assert.True(t, fetched.IsActive)
	assert.Nil(t, fetched.PortfolioID)

	fetched.Config.Threshold = 0.5
	fetched.IsActive = false
	require.NoError(t, repo.UpdateRule(ctx, fetched))

	updated, err := repo.GetRule(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, updated.Config.Threshold)
	assert.False(t, updated.IsActive)

	require.NoError(t, repo.DeleteRule(ctx, 1, created.ID))
	_, err = repo.GetRule(ctx, 1, created.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestRuleOwnerIsolation(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	created, err := repo.CreateRule(ctx, Rule{OwnerID: 1, Name: "mine", Type: RuleVarThreshold, IsActive: true})
	require.NoError(t, err)

	_, err = repo.GetRule(ctx, 2, created.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)
	assert.ErrorIs(t, repo.DeleteRule(ctx, 2, created.ID), ErrRuleNotFound)

	rules, err := repo.ListRules(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestCreateRuleValidation(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	_, err := repo.CreateRule(ctx, Rule{OwnerID: 1, Type: "made_up"})
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = repo.CreateRule(ctx, Rule{OwnerID: 1, Type: RuleCustom})
	assert.ErrorIs(t, err, ErrInvalidRule, "custom rule without conditions")

	_, err = repo.CreateRule(ctx, Rule{OwnerID: 1, Type: RuleCustom, Config: ThresholdConfig{
		Conditions: []Condition{{Metric: "volatility", Operator: "!=", Value: 1}},
	}})
	assert.ErrorIs(t, err, ErrInvalidRule, "unknown operator")
}

func TestCustomRuleConfigRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	created, err := repo.CreateRule(ctx, Rule{
		OwnerID: 1,
		Name:    "combo",
		Type:    RuleCustom,
		Config: ThresholdConfig{Conditions: []Condition{
			{Metric: "volatility", Operator: OpGreater, Value: 0.4},
			{Metric: "concentration", Operator: OpGreaterEqual, Value: 0.6},
		}},
		IsActive: true,
	})
	require.NoError(t, err)

	fetched, err := repo.GetRule(ctx, 1, created.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Config.Conditions, 2)
	assert.Equal(t, OpGreaterEqual, fetched.Config.Conditions[1].Operator)
}

func TestLogAppendListResolve(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	first := Log{
		ID: uuid.New().String(), RuleID: 1, OwnerID: 1, PortfolioID: 7,
		AlertTime: now.Add(-time.Hour), Severity: SeverityWarning,
		Message: "older", CurrentValue: 1, ThresholdValue: 0.5,
	}
	second := Log{
		ID: uuid.New().String(), RuleID: 1, OwnerID: 1, PortfolioID: 7,
		AlertTime: now, Severity: SeverityCritical,
		Message: "newer", CurrentValue: 2, ThresholdValue: 0.5,
	}
	require.NoError(t, repo.AppendLog(ctx, first))
	require.NoError(t, repo.AppendLog(ctx, second))

	logs, err := repo.ListLogs(ctx, 1, 7, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "newer", logs[0].Message, "most recent first")
	assert.False(t, logs[0].IsResolved)

	require.NoError(t, repo.ResolveLog(ctx, 1, second.ID))
	require.NoError(t, repo.MarkNotified(ctx, second.ID))

	logs, err = repo.ListLogs(ctx, 1, 7, 10)
	require.NoError(t, err)
	assert.True(t, logs[0].IsResolved)
	assert.True(t, logs[0].NotificationSent)
	assert.False(t, logs[1].IsResolved, "older log untouched")

	assert.ErrorIs(t, repo.ResolveLog(ctx, 2, second.ID), ErrLogNotFound, "wrong owner")
}

func TestListLogsLimit(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.AppendLog(ctx, Log{
			ID: uuid.New().String(), RuleID: 1, OwnerID: 1, PortfolioID: 7,
			AlertTime: time.Now().UTC(), Severity: SeverityInfo, Message: "m",
		}))
	}

	logs, err := repo.ListLogs(ctx, 1, 7, 3)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}
