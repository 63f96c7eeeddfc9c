package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MagicKrazik/ALPHA/internal/models"

	"github.com/lib/pq"
)

// PostgresAlertRulesRepository implements AlertRulesRepository.
type PostgresAlertRulesRepository struct {
	db *sql.DB
}

// NewPostgresAlertRulesRepository creates the repository.
func NewPostgresAlertRulesRepository(db *sql.DB) *PostgresAlertRulesRepository {
	return &PostgresAlertRulesRepository{db: db}
}

var _ AlertRulesRepository = (*PostgresAlertRulesRepository)(nil)

const alertRuleColumns = `
	id::text,
	name,
	description,
	rule_type,
	rule_config,
	risk_factor_ids::text[],
	priority,
	active,
	created_at,
	updated_at
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlertRule(s rowScanner) (*models.AlertRule, error) {
	var rule models.AlertRule
	var ruleType string
	var config []byte
	var factorIDs pq.StringArray

	if err := s.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&ruleType,
		&config,
		&factorIDs,
		&rule.Priority,
		&rule.Active,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rule.RuleType = models.RuleType(ruleType)
	rule.RuleConfig = jsonOrDefault(config, "{}")
	rule.RiskFactorIDs = []string(factorIDs)
	if rule.RiskFactorIDs == nil {
		rule.RiskFactorIDs = []string{}
	}
	return &rule, nil
}

// ListAlertRules implements AlertRulesRepository.
func (r *PostgresAlertRulesRepository) ListAlertRules(ctx context.Context, activeOnly bool) ([]*models.AlertRule, error) {
	query := `SELECT ` + alertRuleColumns + `
		FROM alert_rules
		WHERE ($1 = FALSE OR active = TRUE)
		ORDER BY priority, name
	`

	rows, err := r.db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	defer rows.Close()

	rules := []*models.AlertRule{}
	for rows.Next() {
		rule, err := scanAlertRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert rules: %w", err)
	}
	return rules, nil
}

// GetAlertRule implements AlertRulesRepository.
func (r *PostgresAlertRulesRepository) GetAlertRule(ctx context.Context, ruleID string) (*models.AlertRule, error) {
	if ruleID == "" {
		return nil, fmt.Errorf("rule_id is required")
	}

	query := `SELECT ` + alertRuleColumns + ` FROM alert_rules WHERE id = $1`
	rule, err := scanAlertRule(r.db.QueryRowContext(ctx, query, ruleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("alert rule %s: %w", ruleID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alert rule: %w", err)
	}
	return rule, nil
}

// CreateAlertRule implements AlertRulesRepository.
func (r *PostgresAlertRulesRepository) CreateAlertRule(ctx context.Context, rule *models.AlertRule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("rule id is required")
	}

	query := `
		INSERT INTO alert_rules (
			id, name, description, rule_type, rule_config, risk_factor_ids, priority, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5::jsonb, $6::uuid[], $7, $8, now(), now())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		string(rule.RuleType),
		string(rule.RuleConfig),
		pq.Array(nonNilStrings(rule.RiskFactorIDs)),
		rule.Priority,
		rule.Active,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("alert rule name %q: %w", rule.Name, models.ErrConflict)
		}
		return fmt.Errorf("failed to create alert rule: %w", err)
	}
	return nil
}

// UpdateAlertRule implements AlertRulesRepository.
func (r *PostgresAlertRulesRepository) UpdateAlertRule(ctx context.Context, rule *models.AlertRule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("rule id is required")
	}

	query := `
		UPDATE alert_rules SET
			name = $2,
			description = $3,
			rule_type = $4,
			rule_config = $5::jsonb,
			risk_factor_ids = $6::uuid[],
			priority = $7,
			active = $8,
			updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		string(rule.RuleType),
		string(rule.RuleConfig),
		pq.Array(nonNilStrings(rule.RiskFactorIDs)),
		rule.Priority,
		rule.Active,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("alert rule %s: %w", rule.ID, models.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("alert rule name %q: %w", rule.Name, models.ErrConflict)
		}
		return fmt.Errorf("failed to update alert rule: %w", err)
	}
	return nil
}

// CreateAlertRuleIfAbsent implements AlertRulesRepository.
func (r *PostgresAlertRulesRepository) CreateAlertRuleIfAbsent(ctx context.Context, rule *models.AlertRule) (bool, error) {
	if rule == nil || rule.ID == "" {
		return false, fmt.Errorf("rule id is required")
	}

	query := `
		INSERT INTO alert_rules (
			id, name, description, rule_type, rule_config, risk_factor_ids, priority, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5::jsonb, $6::uuid[], $7, $8, now(), now())
		ON CONFLICT (name) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		string(rule.RuleType),
		string(rule.RuleConfig),
		pq.Array(nonNilStrings(rule.RiskFactorIDs)),
		rule.Priority,
		rule.Active,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create alert rule %q: %w", rule.Name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}
