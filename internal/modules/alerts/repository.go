package alerts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles alert rule and alert log database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new alerts repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "alerts").Logger(),
	}
}

// CreateRule inserts a rule and returns it with its assigned id.
func (r *Repository) CreateRule(ctx context.Context, rule Rule) (Rule, error) {
	if err := rule.Validate(); err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if rule.Severity == "" {
		rule.Severity = SeverityWarning
	}

	configJSON, err := json.Marshal(rule.Config)
	if err != nil {
		return Rule{}, fmt.Errorf("failed to marshal threshold config: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_rules (owner_id, portfolio_id, rule_name, rule_type, threshold_config, severity, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rule.OwnerID, rule.PortfolioID, rule.Name, rule.Type, string(configJSON), rule.Severity, rule.IsActive)
	if err != nil {
		return Rule{}, fmt.Errorf("failed to insert alert rule: %w", err)
	}

	rule.ID, err = res.LastInsertId()
	if err != nil {
		return Rule{}, fmt.Errorf("failed to read rule id: %w", err)
	}
	rule.CreatedAt = time.Now().UTC()
	return rule, nil
}

// UpdateRule replaces a rule's mutable fields.
func (r *Repository) UpdateRule(ctx context.Context, rule Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	configJSON, err := json.Marshal(rule.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal threshold config: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE alert_rules
		SET portfolio_id = ?, rule_name = ?, rule_type = ?, threshold_config = ?, severity = ?, is_active = ?
		WHERE id = ? AND owner_id = ?
	`, rule.PortfolioID, rule.Name, rule.Type, string(configJSON), rule.Severity, rule.IsActive, rule.ID, rule.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update alert rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// DeleteRule removes a rule. Its historical logs are retained.
func (r *Repository) DeleteRule(ctx context.Context, ownerID, ruleID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM alert_rules WHERE id = ? AND owner_id = ?`, ruleID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete alert rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// GetRule returns one rule by id.
func (r *Repository) GetRule(ctx context.Context, ownerID, ruleID int64) (Rule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, portfolio_id, rule_name, rule_type, threshold_config, severity, is_active, created_at
		FROM alert_rules WHERE id = ? AND owner_id = ?
	`, ruleID, ownerID)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return Rule{}, ErrRuleNotFound
	}
	if err != nil {
		return Rule{}, fmt.Errorf("failed to query alert rule: %w", err)
	}
	return rule, nil
}

// ListRules returns all rules for an owner, active and inactive.
func (r *Repository) ListRules(ctx context.Context, ownerID int64) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, portfolio_id, rule_name, rule_type, threshold_config, severity, is_active, created_at
		FROM alert_rules WHERE owner_id = ? ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rules: %w", err)
	}
	return rules, nil
}

// ActiveRulesForPortfolio returns the active rules in scope for a
// portfolio: portfolio-specific rules plus owner-wide rules.
func (r *Repository) ActiveRulesForPortfolio(ctx context.Context, ownerID, portfolioID int64) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, portfolio_id, rule_name, rule_type, threshold_config, severity, is_active, created_at
		FROM alert_rules
		WHERE owner_id = ? AND is_active = 1 AND (portfolio_id IS NULL OR portfolio_id = ?)
		ORDER BY id
	`, ownerID, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active alert rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rules: %w", err)
	}
	return rules, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (Rule, error) {
	var rule Rule
	var configJSON string
	var createdAt int64
	if err := row.Scan(&rule.ID, &rule.OwnerID, &rule.PortfolioID, &rule.Name, &rule.Type,
		&configJSON, &rule.Severity, &rule.IsActive, &createdAt); err != nil {
		return Rule{}, err
	}
	if err := json.Unmarshal([]byte(configJSON), &rule.Config); err != nil {
		return Rule{}, fmt.Errorf("failed to decode threshold config: %w", err)
	}
	rule.CreatedAt = time.Unix(createdAt, 0).UTC()
	return rule, nil
}

// AppendLog inserts an alert log row.
func (r *Repository) AppendLog(ctx context.Context, entry Log) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_logs (id, rule_id, owner_id, portfolio_id, alert_time, severity, message, current_value, threshold_value, is_resolved, notification_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.RuleID, entry.OwnerID, entry.PortfolioID, entry.AlertTime.Unix(),
		entry.Severity, entry.Message, entry.CurrentValue, entry.ThresholdValue,
		entry.IsResolved, entry.NotificationSent)
	if err != nil {
		return fmt.Errorf("failed to insert alert log: %w", err)
	}
	return nil
}

// ListLogs returns the most recent alert logs for a portfolio.
func (r *Repository) ListLogs(ctx context.Context, ownerID, portfolioID int64, limit int) ([]Log, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rule_id, owner_id, portfolio_id, alert_time, severity, message, current_value, threshold_value, is_resolved, notification_sent
		FROM alert_logs
		WHERE owner_id = ? AND portfolio_id = ?
		ORDER BY alert_time DESC
		LIMIT ?
	`, ownerID, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert logs: %w", err)
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		var entry Log
		var alertTime int64
		if err := rows.Scan(&entry.ID, &entry.RuleID, &entry.OwnerID, &entry.PortfolioID,
			&alertTime, &entry.Severity, &entry.Message, &entry.CurrentValue,
			&entry.ThresholdValue, &entry.IsResolved, &entry.NotificationSent); err != nil {
			return nil, fmt.Errorf("failed to scan alert log: %w", err)
		}
		entry.AlertTime = time.Unix(alertTime, 0).UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert logs: %w", err)
	}
	return logs, nil
}

// ResolveLog marks an alert log as resolved.
func (r *Repository) ResolveLog(ctx context.Context, ownerID int64, logID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alert_logs SET is_resolved = 1 WHERE id = ? AND owner_id = ?`, logID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to resolve alert log: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolve result: %w", err)
	}
	if affected == 0 {
		return ErrLogNotFound
	}
	return nil
}

// MarkNotified records that the notification for a log was delivered.
func (r *Repository) MarkNotified(ctx context.Context, logID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE alert_logs SET notification_sent = 1 WHERE id = ?`, logID)
	if err != nil {
		return fmt.Errorf("failed to mark alert log notified: %w", err)
	}
	return nil
}
