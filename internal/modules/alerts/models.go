// Package alerts provides threshold-based risk alert rules, their
// evaluation against freshly computed metrics, and the append-only alert
// log.
package alerts

import (
	"errors"
	"time"
)

// RuleType identifies the predicate a rule evaluates.
type RuleType string

const (
	RuleVarThreshold        RuleType = "var_threshold"
	RuleLossThreshold       RuleType = "loss_threshold"
	RuleVolatilityThreshold RuleType = "volatility_threshold"
	RuleConcentrationRisk   RuleType = "concentration_risk"
	RuleCustom              RuleType = "custom"
)

// Severity levels for rules and their logs.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

var (
	// ErrRuleNotFound is returned when a rule id does not exist for the owner.
	ErrRuleNotFound = errors.New("alert rule not found")

	// ErrLogNotFound is returned when an alert log id does not exist for the owner.
	ErrLogNotFound = errors.New("alert log not found")

	// ErrInvalidRule is returned when a rule fails validation.
	ErrInvalidRule = errors.New("invalid alert rule")
)

// Operator is a comparison operator in a custom rule condition.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
)

// Condition is one (metric, operator, value) predicate of a custom rule.
// Conditions are combined with OR semantics: any one holding triggers the
// rule.
type Condition struct {
	Metric   string   `json:"metric"`
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
}

// ThresholdConfig is the stored per-rule threshold configuration. The
// simple rule types use Threshold; custom rules use Conditions.
type ThresholdConfig struct {
	Threshold  float64     `json:"threshold,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// Rule is a stored, user-managed alert rule. A nil PortfolioID scopes the
// rule to every portfolio of the owner.
type Rule struct {
	ID          int64           `json:"id"`
	OwnerID     int64           `json:"ownerId"`
	PortfolioID *int64          `json:"portfolioId,omitempty"`
	Name        string          `json:"name"`
	Type        RuleType        `json:"type"`
	Config      ThresholdConfig `json:"config"`
	Severity    string          `json:"severity"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// AppliesTo reports whether the rule is in scope for a portfolio.
func (r Rule) AppliesTo(portfolioID int64) bool {
	return r.PortfolioID == nil || *r.PortfolioID == portfolioID
}

// Validate checks structural validity of a rule.
func (r Rule) Validate() error {
	switch r.Type {
	case RuleVarThreshold, RuleLossThreshold, RuleVolatilityThreshold, RuleConcentrationRisk:
		return nil
	case RuleCustom:
		if len(r.Config.Conditions) == 0 {
			return errors.New("custom rule requires at least one condition")
		}
		for _, c := range r.Config.Conditions {
			switch c.Operator {
			case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual:
			default:
				return errors.New("unknown operator in custom rule condition")
			}
		}
		return nil
	}
	return errors.New("unknown rule type")
}

// Log is one append-only alert occurrence. Only the resolved and
// notification-sent flags are ever updated after insert.
type Log struct {
	ID               string    `json:"id"`
	RuleID           int64     `json:"ruleId"`
	OwnerID          int64     `json:"ownerId"`
	PortfolioID      int64     `json:"portfolioId"`
	AlertTime        time.Time `json:"alertTime"`
	Severity         string    `json:"severity"`
	Message          string    `json:"message"`
	CurrentValue     float64   `json:"currentValue"`
	ThresholdValue   float64   `json:"thresholdValue"`
	IsResolved       bool      `json:"isResolved"`
	NotificationSent bool      `json:"notificationSent"`
}
