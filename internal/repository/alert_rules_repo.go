package repository

import (
	"context"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// AlertRulesRepository stores administrator-edited alert rules.
type AlertRulesRepository interface {
	// ListAlertRules returns rules ordered by priority, then name.
	ListAlertRules(ctx context.Context, activeOnly bool) ([]*models.AlertRule, error)

	// GetAlertRule returns one rule or models.ErrNotFound.
	GetAlertRule(ctx context.Context, ruleID string) (*models.AlertRule, error)

	// CreateAlertRule inserts a rule; rule.ID must be set.
	CreateAlertRule(ctx context.Context, rule *models.AlertRule) error

	// UpdateAlertRule replaces the editable fields of an existing rule, or returns models.ErrNotFound.
	UpdateAlertRule(ctx context.Context, rule *models.AlertRule) error

	// CreateAlertRuleIfAbsent inserts the rule unless one with the same name exists.
	CreateAlertRuleIfAbsent(ctx context.Context, rule *models.AlertRule) (created bool, err error)
}
