// Package snapshots persists risk computation results: the append-only
// VaR and stress audit trails and the daily monitoring status rows.
package snapshots

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/riskwatch/internal/domain"
	"github.com/aristath/riskwatch/internal/modules/stress"
	"github.com/aristath/riskwatch/internal/modules/varcalc"
	"github.com/rs/zerolog"
)

// Repository handles risk result database operations. Result rows are
// append-only; only monitoring status rows are upserted.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshots repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// VaRRecord is a stored VaR calculation row.
type VaRRecord struct {
	ID              int64               `json:"id"`
	OwnerID         int64               `json:"ownerId"`
	PortfolioID     int64               `json:"portfolioId"`
	CalculationDate time.Time           `json:"calculationDate"`
	PortfolioValue  float64             `json:"portfolioValue"`
	VaRAmount       float64             `json:"varAmount"`
	VaRPct          float64             `json:"varPercentage"`
	ESAmount        float64             `json:"expectedShortfall"`
	ConfidenceLevel float64             `json:"confidenceLevel"`
	HorizonDays     int                 `json:"horizonDays"`
	Method          varcalc.Method      `json:"method"`
	Components      []varcalc.Component `json:"components"`
	Diagnostics     varcalc.Diagnostics `json:"diagnostics"`
}

// SaveVaRResult appends a VaR result row.
func (r *Repository) SaveVaRResult(ctx context.Context, ownerID int64, result varcalc.Result) (int64, error) {
	components, err := json.Marshal(result.Components)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal components: %w", err)
	}
	diagnostics, err := json.Marshal(result.Diagnostics)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal diagnostics: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO var_results (owner_id, portfolio_id, calculation_date, portfolio_value,
			var_absolute, var_percentage, expected_shortfall, confidence_level, time_horizon,
			method, component_var, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ownerID, result.PortfolioID, result.ComputedAt.Unix(), result.PortfolioValue,
		result.VaRAmount, result.VaRPct, result.ESAmount, result.ConfidenceLevel,
		result.HorizonDays, result.Method, string(components), string(diagnostics))
	if err != nil {
		return 0, fmt.Errorf("failed to insert var result: %w", err)
	}
	return res.LastInsertId()
}

// LatestVaR returns the most recent VaR record for a portfolio, or nil
// when none exists.
func (r *Repository) LatestVaR(ctx context.Context, ownerID, portfolioID int64) (*VaRRecord, error) {
	records, err := r.queryVaR(ctx, ownerID, portfolioID, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// ListVaRHistory returns the most recent VaR records for a portfolio.
func (r *Repository) ListVaRHistory(ctx context.Context, ownerID, portfolioID int64, limit int) ([]VaRRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	return r.queryVaR(ctx, ownerID, portfolioID, limit)
}

func (r *Repository) queryVaR(ctx context.Context, ownerID, portfolioID int64, limit int) ([]VaRRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, portfolio_id, calculation_date, portfolio_value,
			var_absolute, var_percentage, expected_shortfall, confidence_level, time_horizon,
			method, component_var, diagnostics
		FROM var_results
		WHERE owner_id = ? AND portfolio_id = ?
		ORDER BY calculation_date DESC, id DESC
		LIMIT ?
	`, ownerID, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query var results: %w", err)
	}
	defer rows.Close()

	var records []VaRRecord
	for rows.Next() {
		var record VaRRecord
		var calculationDate int64
		var components, diagnostics string
		if err := rows.Scan(&record.ID, &record.OwnerID, &record.PortfolioID, &calculationDate,
			&record.PortfolioValue, &record.VaRAmount, &record.VaRPct, &record.ESAmount,
			&record.ConfidenceLevel, &record.HorizonDays, &record.Method,
			&components, &diagnostics); err != nil {
			return nil, fmt.Errorf("failed to scan var result: %w", err)
		}
		record.CalculationDate = time.Unix(calculationDate, 0).UTC()
		if err := json.Unmarshal([]byte(components), &record.Components); err != nil {
			return nil, fmt.Errorf("failed to decode components: %w", err)
		}
		if err := json.Unmarshal([]byte(diagnostics), &record.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to decode diagnostics: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating var results: %w", err)
	}
	return records, nil
}

// StressRecord is a stored stress test row.
type StressRecord struct {
	ID              int64                        `json:"id"`
	OwnerID         int64                        `json:"ownerId"`
	PortfolioID     int64                        `json:"portfolioId"`
	ScenarioID      string                       `json:"scenarioId"`
	ScenarioType    stress.ScenarioType          `json:"scenarioType"`
	TestDate        time.Time                    `json:"testDate"`
	ValueBefore     float64                      `json:"portfolioValueBefore"`
	ValueAfter      float64                      `json:"portfolioValueAfter"`
	AbsoluteLoss    float64                      `json:"absoluteLoss"`
	PercentageLoss  float64                      `json:"percentageLoss"`
	WorstCaseLoss   float64                      `json:"worstCaseLoss"`
	BestCaseGain    float64                      `json:"bestCaseGain"`
	PositionImpacts []stress.PositionImpact      `json:"positionImpacts"`
	Sensitivity     []stress.PositionSensitivity `json:"sensitivity"`
	Details         simulationDetails            `json:"details"`
}

type simulationDetails struct {
	WindowOutcomes []stress.WindowOutcome `json:"windowOutcomes,omitempty"`
	Percentiles    map[string]float64     `json:"percentiles,omitempty"`
	Simulations    int                    `json:"simulations,omitempty"`
	Seed           uint64                 `json:"seed,omitempty"`
}

// SaveStressResult appends a stress test result row.
func (r *Repository) SaveStressResult(ctx context.Context, ownerID int64, result stress.Result) (int64, error) {
	impacts, err := json.Marshal(result.PositionImpacts)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal position impacts: %w", err)
	}
	sensitivity, err := json.Marshal(result.Sensitivity)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal sensitivity: %w", err)
	}
	details, err := json.Marshal(simulationDetails{
		WindowOutcomes: result.WindowOutcomes,
		Percentiles:    result.Percentiles,
		Simulations:    result.Simulations,
		Seed:           result.Seed,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal simulation details: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO stress_results (owner_id, portfolio_id, scenario_id, scenario_type, test_date,
			value_before, value_after, absolute_loss, percentage_loss, worst_case_loss, best_case_gain,
			position_impacts, sensitivity, simulation_details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ownerID, result.PortfolioID, result.ScenarioID, result.ScenarioType, result.ComputedAt.Unix(),
		result.ValueBefore, result.ValueAfter, result.AbsoluteLoss, result.PercentageLoss,
		result.WorstCaseLoss, result.BestCaseGain, string(impacts), string(sensitivity), string(details))
	if err != nil {
		return 0, fmt.Errorf("failed to insert stress result: %w", err)
	}
	return res.LastInsertId()
}

// ListStressHistory returns the most recent stress test records for a
// portfolio.
func (r *Repository) ListStressHistory(ctx context.Context, ownerID, portfolioID int64, limit int) ([]StressRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, portfolio_id, scenario_id, scenario_type, test_date,
			value_before, value_after, absolute_loss, percentage_loss, worst_case_loss, best_case_gain,
			position_impacts, sensitivity, simulation_details
		FROM stress_results
		WHERE owner_id = ? AND portfolio_id = ?
		ORDER BY test_date DESC, id DESC
		LIMIT ?
	`, ownerID, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stress results: %w", err)
	}
	defer rows.Close()

	var records []StressRecord
	for rows.Next() {
		var record StressRecord
		var testDate int64
		var impacts, sensitivity, details string
		if err := rows.Scan(&record.ID, &record.OwnerID, &record.PortfolioID, &record.ScenarioID,
			&record.ScenarioType, &testDate, &record.ValueBefore, &record.ValueAfter,
			&record.AbsoluteLoss, &record.PercentageLoss, &record.WorstCaseLoss, &record.BestCaseGain,
			&impacts, &sensitivity, &details); err != nil {
			return nil, fmt.Errorf("failed to scan stress result: %w", err)
		}
		record.TestDate = time.Unix(testDate, 0).UTC()
		if err := json.Unmarshal([]byte(impacts), &record.PositionImpacts); err != nil {
			return nil, fmt.Errorf("failed to decode position impacts: %w", err)
		}
		if err := json.Unmarshal([]byte(sensitivity), &record.Sensitivity); err != nil {
			return nil, fmt.Errorf("failed to decode sensitivity: %w", err)
		}
		if err := json.Unmarshal([]byte(details), &record.Details); err != nil {
			return nil, fmt.Errorf("failed to decode simulation details: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stress results: %w", err)
	}
	return records, nil
}

// UpsertMonitoringStatus writes the daily monitoring row for a
// portfolio, keyed by (portfolio, date). Re-running a tick for the same
// day overwrites the row.
func (r *Repository) UpsertMonitoringStatus(ctx context.Context, ownerID, portfolioID int64, date string, metrics domain.RiskMetrics, alertCount int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monitoring_status (owner_id, portfolio_id, monitoring_date, portfolio_value,
			daily_pnl, daily_pnl_percentage, current_var, volatility, max_drawdown, concentration,
			alert_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_id, monitoring_date) DO UPDATE SET
			portfolio_value = excluded.portfolio_value,
			daily_pnl = excluded.daily_pnl,
			daily_pnl_percentage = excluded.daily_pnl_percentage,
			current_var = excluded.current_var,
			volatility = excluded.volatility,
			max_drawdown = excluded.max_drawdown,
			concentration = excluded.concentration,
			alert_count = excluded.alert_count,
			updated_at = excluded.updated_at
	`, ownerID, portfolioID, date, metrics.PortfolioValue,
		metrics.DailyPnL, metrics.DailyPnLPercentage, metrics.CurrentVaR,
		metrics.Volatility, metrics.MaxDrawdown, metrics.Concentration,
		alertCount, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert monitoring status: %w", err)
	}
	return nil
}

// GetMonitoringStatus returns the monitoring row for a portfolio and
// date, or nil when none exists.
func (r *Repository) GetMonitoringStatus(ctx context.Context, portfolioID int64, date string) (*domain.RiskMetrics, error) {
	var metrics domain.RiskMetrics
	var updatedAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT portfolio_value, daily_pnl, daily_pnl_percentage, current_var,
			volatility, max_drawdown, concentration, updated_at
		FROM monitoring_status
		WHERE portfolio_id = ? AND monitoring_date = ?
	`, portfolioID, date).Scan(&metrics.PortfolioValue, &metrics.DailyPnL,
		&metrics.DailyPnLPercentage, &metrics.CurrentVaR, &metrics.Volatility,
		&metrics.MaxDrawdown, &metrics.Concentration, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query monitoring status: %w", err)
	}
	metrics.MonitoringTime = time.Unix(updatedAt, 0).UTC()
	return &metrics, nil
}
