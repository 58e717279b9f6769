// Package stress runs stress test scenarios against portfolio snapshots:
// historical drawdown replays, hypothetical shocks, and Monte Carlo
// simulations, each with a per-position sensitivity analysis.
package stress

import (
	"errors"
	"time"
)

// ScenarioType selects the stress testing technique.
type ScenarioType string

const (
	ScenarioHistorical   ScenarioType = "historical"
	ScenarioHypothetical ScenarioType = "hypothetical"
	ScenarioMonteCarlo   ScenarioType = "monte_carlo"
)

var (
	// ErrUnknownScenario is returned for a scenario type outside the supported set.
	ErrUnknownScenario = errors.New("unknown scenario type")

	// ErrNoWindows is returned when a historical scenario names no date ranges.
	ErrNoWindows = errors.New("historical scenario requires at least one date range")

	// ErrDegeneratePortfolio is returned when the snapshot has no positions
	// or zero total value.
	ErrDegeneratePortfolio = errors.New("portfolio has no positions or zero value")
)

// DateRange is a named historical window to replay.
type DateRange struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Scenario describes one stress test. Only the fields for the selected
// type are consulted.
type Scenario struct {
	ID   string       `json:"id"`
	Type ScenarioType `json:"type"`

	// Historical.
	Windows []DateRange `json:"windows,omitempty"`

	// Hypothetical. Shock factors are fractional price changes; resolution
	// precedence is symbol, then sector, then market-wide.
	SymbolShocks map[string]float64 `json:"symbolShocks,omitempty"`
	SectorShocks map[string]float64 `json:"sectorShocks,omitempty"`
	MarketShock  float64            `json:"marketShock,omitempty"`

	// Monte Carlo.
	Simulations     int     `json:"simulations,omitempty"`
	ConfidenceLevel float64 `json:"confidenceLevel,omitempty"`
	LookbackDays    int     `json:"lookbackDays,omitempty"`
	Seed            uint64  `json:"seed,omitempty"`
}

// PositionImpact is one position's contribution to the scenario outcome.
type PositionImpact struct {
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Shock       float64 `json:"shock"`
	ValueBefore float64 `json:"valueBefore"`
	ValueAfter  float64 `json:"valueAfter"`
	Loss        float64 `json:"loss"`
}

// SensitivityPoint is the portfolio impact of shocking one position by a
// fixed fractional amount while holding the rest constant.
type SensitivityPoint struct {
	Shock          float64 `json:"shock"`
	Impact         float64 `json:"impact"`
	PortfolioValue float64 `json:"portfolioValue"`
}

// PositionSensitivity is a position's shock-to-impact curve.
type PositionSensitivity struct {
	Symbol string             `json:"symbol"`
	Points []SensitivityPoint `json:"points"`
}

// WindowOutcome summarizes one historical window's replay.
type WindowOutcome struct {
	Name           string  `json:"name"`
	AbsoluteLoss   float64 `json:"absoluteLoss"`
	PercentageLoss float64 `json:"percentageLoss"`
}

// Result is a completed stress test.
type Result struct {
	PortfolioID    int64        `json:"portfolioId"`
	ScenarioID     string       `json:"scenarioId"`
	ScenarioType   ScenarioType `json:"scenarioType"`
	ValueBefore    float64      `json:"portfolioValueBefore"`
	ValueAfter     float64      `json:"portfolioValueAfter"`
	AbsoluteLoss   float64      `json:"absoluteLoss"`
	PercentageLoss float64      `json:"percentageLoss"`
	WorstCaseLoss  float64      `json:"worstCaseLoss"`
	BestCaseGain   float64      `json:"bestCaseGain"`

	PositionImpacts []PositionImpact      `json:"positionImpacts"`
	Sensitivity     []PositionSensitivity `json:"sensitivity"`

	// Historical detail: one outcome per replayed window.
	WindowOutcomes []WindowOutcome `json:"windowOutcomes,omitempty"`

	// Monte Carlo detail.
	Percentiles map[string]float64 `json:"percentiles,omitempty"`
	Simulations int                `json:"simulations,omitempty"`
	Seed        uint64             `json:"seed,omitempty"`

	ComputedAt time.Time `json:"computedAt"`
}
