package service

import (
	"context"
	"fmt"

	"github.com/MagicKrazik/ALPHA/internal/models"
	"github.com/MagicKrazik/ALPHA/internal/repository"
	"github.com/MagicKrazik/ALPHA/internal/rules"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RuleService validates and stores alert rules.
type RuleService struct {
	rules  repository.AlertRulesRepository
	logger *zap.Logger
	newID  func() string
}

// NewRuleService creates the rule service.
func NewRuleService(rulesRepo repository.AlertRulesRepository, logger *zap.Logger) *RuleService {
	return &RuleService{
		rules:  rulesRepo,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Validate checks a rule without saving it; failures wrap rules.ErrInvalidConfig.
func (s *RuleService) Validate(rule *models.AlertRule) error {
	return rules.ValidateRule(rule)
}

// List returns rules ordered by priority, then name.
func (s *RuleService) List(ctx context.Context, activeOnly bool) ([]*models.AlertRule, error) {
	list, err := s.rules.ListAlertRules(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	return list, nil
}

// Get returns one rule or models.ErrNotFound.
func (s *RuleService) Get(ctx context.Context, ruleID string) (*models.AlertRule, error) {
	if ruleID == "" {
		return nil, fmt.Errorf("rule_id is required")
	}
	rule, err := s.rules.GetAlertRule(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert rule: %w", err)
	}
	return rule, nil
}

// Create validates and inserts a new rule with a fresh id.
func (s *RuleService) Create(ctx context.Context, rule *models.AlertRule) (*models.AlertRule, error) {
	if err := rules.ValidateRule(rule); err != nil {
		return nil, err
	}
	rule.ID = s.newID()
	if rule.RiskFactorIDs == nil {
		rule.RiskFactorIDs = []string{}
	}

	if err := s.rules.CreateAlertRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create alert rule: %w", err)
	}
	s.logger.Info("Alert rule created",
		zap.String("rule_id", rule.ID),
		zap.String("name", rule.Name),
		zap.String("rule_type", string(rule.RuleType)),
	)
	return rule, nil
}

// Update validates and replaces an existing rule.
func (s *RuleService) Update(ctx context.Context, ruleID string, rule *models.AlertRule) (*models.AlertRule, error) {
	if ruleID == "" {
		return nil, fmt.Errorf("rule_id is required")
	}
	if err := rules.ValidateRule(rule); err != nil {
		return nil, err
	}
	rule.ID = ruleID
	if rule.RiskFactorIDs == nil {
		rule.RiskFactorIDs = []string{}
	}

	if err := s.rules.UpdateAlertRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to update alert rule: %w", err)
	}
	s.logger.Info("Alert rule updated",
		zap.String("rule_id", rule.ID),
		zap.String("name", rule.Name),
		zap.Bool("active", rule.Active),
	)
	return rule, nil
}
