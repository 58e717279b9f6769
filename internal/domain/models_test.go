package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func snapshotWithPositions(positions []Position, total float64) PortfolioSnapshot {
	return PortfolioSnapshot{
		PortfolioID: 1,
		OwnerID:     1,
		TotalValue:  total,
		Positions:   positions,
		CapturedAt:  time.Now(),
	}
}

func TestSnapshotInvariantsHold(t *testing.T) {
	s := snapshotWithPositions([]Position{
		{Symbol: "AAA", Quantity: 10, CurrentPrice: 60, MarketValue: 600, Weight: 0.6},
		{Symbol: "BBB", Quantity: 4, CurrentPrice: 100, MarketValue: 400, Weight: 0.4},
	}, 1000)

	assert.False(t, s.IsDegenerate())
	assert.True(t, s.CheckInvariants())
	assert.Equal(t, []string{"AAA", "BBB"}, s.Symbols())
}

func TestSnapshotInvariantsViolated(t *testing.T) {
	s := snapshotWithPositions([]Position{
		{Symbol: "AAA", MarketValue: 600, Weight: 0.6},
		{Symbol: "BBB", MarketValue: 300, Weight: 0.4}, // values don't sum to total
	}, 1000)

	assert.False(t, s.CheckInvariants())
}

func TestSnapshotDegenerate(t *testing.T) {
	empty := snapshotWithPositions(nil, 0)
	assert.True(t, empty.IsDegenerate())
	assert.True(t, empty.CheckInvariants())

	zeroValue := snapshotWithPositions([]Position{{Symbol: "AAA"}}, 0)
	assert.True(t, zeroValue.IsDegenerate())
}

func TestRiskMetricsLookup(t *testing.T) {
	m := RiskMetrics{Volatility: 0.25, Concentration: 0.4}

	v, ok := m.Metric("volatility")
	assert.True(t, ok)
	assert.Equal(t, 0.25, v)

	_, ok = m.Metric("unknown_metric")
	assert.False(t, ok)
}
