package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/MagicKrazik/ALPHA/internal/events"
	"github.com/MagicKrazik/ALPHA/internal/metrics"
	"github.com/MagicKrazik/ALPHA/internal/models"
	"github.com/MagicKrazik/ALPHA/internal/repository"
	"github.com/MagicKrazik/ALPHA/internal/rules"

	"go.uber.org/zap"
)

// Result summarizes one evaluation pass over a case.
type Result struct {
	CaseID       string
	Evaluated    int
	Triggered    int
	Created      []*models.RiskAlert
	Deduplicated int
	Failed       int
}

// Engine evaluates the active alert rules against a case's risk profile.
type Engine struct {
	profiles  repository.RiskProfilesRepository
	ruleRepo  repository.AlertRulesRepository
	alerts    repository.RiskAlertsRepository
	publisher events.Publisher
	builder   *AlertBuilder
	logger    *zap.Logger

	// evaluate is rules.Evaluate outside tests.
	evaluate func(rule *models.AlertRule, profile *models.RiskProfile) (bool, error)
}

// NewEngine creates an engine.
func NewEngine(
	profiles repository.RiskProfilesRepository,
	ruleRepo repository.AlertRulesRepository,
	alerts repository.RiskAlertsRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		profiles:  profiles,
		ruleRepo:  ruleRepo,
		alerts:    alerts,
		publisher: publisher,
		builder:   NewAlertBuilder(),
		logger:    logger,
		evaluate:  rules.Evaluate,
	}
}

// EvaluateCase runs every active rule, in priority order, against the case's profile.
//
// A failure inside one rule (configuration error, panic, persistence error) is logged
// and counted, and never stops the remaining rules. A case without a profile yields an
// empty result. An existing active alert for (case, rule) suppresses the new alert.
func (e *Engine) EvaluateCase(ctx context.Context, caseID string) (*Result, error) {
	result := &Result{CaseID: caseID, Created: []*models.RiskAlert{}}

	profile, err := e.profiles.GetByCaseID(ctx, caseID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			e.logger.Info("No risk profile yet, skipping rule evaluation",
				zap.String("case_id", caseID),
			)
			return result, nil
		}
		return nil, fmt.Errorf("failed to load risk profile: %w", err)
	}

	activeRules, err := e.ruleRepo.ListAlertRules(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert rules: %w", err)
	}

	for _, rule := range activeRules {
		result.Evaluated++

		triggered, err := e.evaluateRule(rule, profile)
		if err != nil {
			result.Failed++
			metrics.RuleEvaluations.WithLabelValues(string(rule.RuleType), "error").Inc()
			e.logger.Error("Failed to evaluate alert rule",
				zap.String("case_id", caseID),
				zap.String("rule_id", rule.ID),
				zap.String("rule_name", rule.Name),
				zap.Error(err),
			)
			continue
		}
		if !triggered {
			metrics.RuleEvaluations.WithLabelValues(string(rule.RuleType), "not_triggered").Inc()
			continue
		}

		result.Triggered++
		metrics.RuleEvaluations.WithLabelValues(string(rule.RuleType), "triggered").Inc()

		alert := e.builder.Build(rule, profile)
		created, err := e.alerts.CreateIfNoActive(ctx, alert)
		if err != nil {
			result.Failed++
			e.logger.Error("Failed to create risk alert",
				zap.String("case_id", caseID),
				zap.String("rule_id", rule.ID),
				zap.Error(err),
			)
			continue
		}
		if !created {
			result.Deduplicated++
			metrics.AlertsDeduplicated.Inc()
			e.logger.Debug("Active alert already exists for rule",
				zap.String("case_id", caseID),
				zap.String("rule_id", rule.ID),
			)
			continue
		}

		result.Created = append(result.Created, alert)
		metrics.AlertsCreated.WithLabelValues(string(alert.AlertType)).Inc()
		e.logger.Info("Risk alert created",
			zap.String("alert_id", alert.ID),
			zap.String("case_id", caseID),
			zap.String("rule_id", rule.ID),
			zap.String("alert_type", string(alert.AlertType)),
			zap.Float64("risk_score", alert.RiskScore),
		)

		event := models.AlertCreatedEvent{AlertID: alert.ID, CaseID: caseID, AlertType: alert.AlertType}
		if err := e.publisher.Publish(ctx, events.StreamAlerts, event); err != nil {
			// The alert row exists; only its notifications are lost.
			e.logger.Error("Failed to publish alert.created",
				zap.String("alert_id", alert.ID),
				zap.Error(err),
			)
		}
	}

	return result, nil
}

// evaluateRule isolates a single rule: a panic becomes an error for that rule only.
func (e *Engine) evaluateRule(rule *models.AlertRule, profile *models.RiskProfile) (triggered bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			triggered = false
			err = fmt.Errorf("panic evaluating rule %s: %v", rule.ID, r)
		}
	}()
	return e.evaluate(rule, profile)
}
