package alerts

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aristath/riskwatch/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// equalityTolerance is the absolute tolerance of the == operator in
// custom rule conditions.
const equalityTolerance = 1e-4

// Engine evaluates alert rules against freshly computed risk metrics. On
// trigger it appends a log row and forwards a best-effort notification;
// notification failure never rolls back the log write. Evaluation is NOT
// deduplicated against prior alerts: every triggering tick produces a new
// log row.
type Engine struct {
	repo     *Repository
	notifier domain.NotificationDispatcher
	log      zerolog.Logger
}

// NewEngine creates a new alert engine. notifier may be nil, in which
// case triggered alerts are logged but not forwarded.
func NewEngine(repo *Repository, notifier domain.NotificationDispatcher, log zerolog.Logger) *Engine {
	return &Engine{
		repo:     repo,
		notifier: notifier,
		log:      log.With().Str("service", "alerts").Logger(),
	}
}

// Evaluation is the outcome of one rule evaluated against one metrics set.
type Evaluation struct {
	Rule      Rule    `json:"rule"`
	Triggered bool    `json:"triggered"`
	Current   float64 `json:"currentValue"`
	Threshold float64 `json:"thresholdValue"`
	Message   string  `json:"message,omitempty"`
}

// EvaluatePortfolio evaluates every active in-scope rule against the
// metrics and persists a log row per triggered rule. It returns all
// evaluations, triggered or not. Persistence failures on one rule do not
// stop evaluation of the rest.
func (e *Engine) EvaluatePortfolio(ctx context.Context, ownerID, portfolioID int64, metrics domain.RiskMetrics) ([]Evaluation, error) {
	rules, err := e.repo.ActiveRulesForPortfolio(ctx, ownerID, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert rules: %w", err)
	}

	evaluations := make([]Evaluation, 0, len(rules))
	for _, rule := range rules {
		evaluation := EvaluateRule(rule, metrics)
		evaluations = append(evaluations, evaluation)
		if !evaluation.Triggered {
			continue
		}

		if err := e.recordTrigger(ctx, portfolioID, evaluation, metrics); err != nil {
			e.log.Error().Err(err).Int64("rule_id", rule.ID).Msg("Failed to record triggered alert")
		}
	}
	return evaluations, nil
}

func (e *Engine) recordTrigger(ctx context.Context, portfolioID int64, evaluation Evaluation, metrics domain.RiskMetrics) error {
	entry := Log{
		ID:             uuid.New().String(),
		RuleID:         evaluation.Rule.ID,
		OwnerID:        evaluation.Rule.OwnerID,
		PortfolioID:    portfolioID,
		AlertTime:      time.Now().UTC(),
		Severity:       evaluation.Rule.Severity,
		Message:        evaluation.Message,
		CurrentValue:   evaluation.Current,
		ThresholdValue: evaluation.Threshold,
	}
	if err := e.repo.AppendLog(ctx, entry); err != nil {
		return err
	}

	e.log.Warn().
		Int64("rule_id", evaluation.Rule.ID).
		Int64("portfolio_id", portfolioID).
		Str("severity", entry.Severity).
		Str("message", entry.Message).
		Msg("Alert triggered")

	if e.notifier == nil {
		return nil
	}
	err := e.notifier.Notify(ctx, entry.OwnerID, entry.Severity, evaluation.Rule.Name, entry.Message, map[string]interface{}{
		"alert_id":     entry.ID,
		"rule_id":      entry.RuleID,
		"portfolio_id": portfolioID,
		"current":      entry.CurrentValue,
		"threshold":    entry.ThresholdValue,
	})
	if err != nil {
		// best-effort delivery, the log row stands
		e.log.Warn().Err(err).Str("alert_id", entry.ID).Msg("Failed to deliver alert notification")
		return nil
	}
	if err := e.repo.MarkNotified(ctx, entry.ID); err != nil {
		e.log.Warn().Err(err).Str("alert_id", entry.ID).Msg("Failed to mark alert notified")
	}
	return nil
}

// EvaluateRule evaluates one rule against a metrics set. It is a pure
// function with no side effects.
func EvaluateRule(rule Rule, metrics domain.RiskMetrics) Evaluation {
	evaluation := Evaluation{Rule: rule, Threshold: rule.Config.Threshold}

	switch rule.Type {
	case RuleVarThreshold:
		evaluation.Current = metrics.CurrentVaR
		if metrics.CurrentVaR > rule.Config.Threshold {
			evaluation.Triggered = true
			evaluation.Message = fmt.Sprintf("VaR %.2f exceeds threshold %.2f", metrics.CurrentVaR, rule.Config.Threshold)
		}
	case RuleLossThreshold:
		evaluation.Current = metrics.DailyPnLPercentage
		limit := -math.Abs(rule.Config.Threshold)
		if metrics.DailyPnLPercentage < limit {
			evaluation.Triggered = true
			evaluation.Message = fmt.Sprintf("Daily loss %.2f%% exceeds limit %.2f%%", metrics.DailyPnLPercentage*100, limit*100)
		}
	case RuleVolatilityThreshold:
		evaluation.Current = metrics.Volatility
		if metrics.Volatility > rule.Config.Threshold {
			evaluation.Triggered = true
			evaluation.Message = fmt.Sprintf("Volatility %.4f exceeds threshold %.4f", metrics.Volatility, rule.Config.Threshold)
		}
	case RuleConcentrationRisk:
		evaluation.Current = metrics.Concentration
		if metrics.Concentration > rule.Config.Threshold {
			evaluation.Triggered = true
			evaluation.Message = fmt.Sprintf("Position concentration %.2f%% exceeds threshold %.2f%%", metrics.Concentration*100, rule.Config.Threshold*100)
		}
	case RuleCustom:
		evaluation = evaluateCustom(rule, metrics)
	}

	return evaluation
}

// evaluateCustom applies OR semantics over the rule's conditions and
// concatenates per-condition diagnostics. The first holding condition
// supplies the logged current/threshold pair.
func evaluateCustom(rule Rule, metrics domain.RiskMetrics) Evaluation {
	evaluation := Evaluation{Rule: rule}

	var messages []string
	for _, condition := range rule.Config.Conditions {
		current, ok := metrics.Metric(condition.Metric)
		if !ok {
			continue
		}
		if !compare(current, condition.Operator, condition.Value) {
			continue
		}
		if !evaluation.Triggered {
			evaluation.Triggered = true
			evaluation.Current = current
			evaluation.Threshold = condition.Value
		}
		messages = append(messages, fmt.Sprintf("%s %s %v (current %.4f)", condition.Metric, condition.Operator, condition.Value, current))
	}
	evaluation.Message = strings.Join(messages, "; ")
	return evaluation
}

func compare(current float64, op Operator, value float64) bool {
	switch op {
	case OpGreater:
		return current > value
	case OpLess:
		return current < value
	case OpGreaterEqual:
		return current >= value
	case OpLessEqual:
		return current <= value
	case OpEqual:
		return math.Abs(current-value) <= equalityTolerance
	}
	return false
}
