package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/models"

	"github.com/lib/pq"
)

// PostgresRiskAlertsRepository implements RiskAlertsRepository.
type PostgresRiskAlertsRepository struct {
	db *sql.DB
}

// NewPostgresRiskAlertsRepository creates the repository.
func NewPostgresRiskAlertsRepository(db *sql.DB) *PostgresRiskAlertsRepository {
	return &PostgresRiskAlertsRepository{db: db}
}

var _ RiskAlertsRepository = (*PostgresRiskAlertsRepository)(nil)

const riskAlertColumns = `
	id::text,
	case_id::text,
	rule_id::text,
	alert_type,
	status,
	title,
	message,
	risk_score,
	confidence_level,
	recommendations,
	triggered_at,
	acknowledged_by::text,
	acknowledged_at,
	resolved_by::text,
	resolved_at,
	dismissed_by::text,
	dismissed_at,
	created_at,
	updated_at
`

func scanRiskAlert(s rowScanner) (*models.RiskAlert, error) {
	var a models.RiskAlert
	var alertType, status string
	var recommendations []byte
	var ackBy, resolvedBy, dismissedBy sql.NullString
	var ackAt, resolvedAt, dismissedAt sql.NullTime

	if err := s.Scan(
		&a.ID,
		&a.CaseID,
		&a.RuleID,
		&alertType,
		&status,
		&a.Title,
		&a.Message,
		&a.RiskScore,
		&a.ConfidenceLevel,
		&recommendations,
		&a.TriggeredAt,
		&ackBy,
		&ackAt,
		&resolvedBy,
		&resolvedAt,
		&dismissedBy,
		&dismissedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}

	a.AlertType = models.AlertType(alertType)
	a.Status = models.AlertStatus(status)
	a.AcknowledgedBy = nullString(ackBy)
	a.AcknowledgedAt = nullTime(ackAt)
	a.ResolvedBy = nullString(resolvedBy)
	a.ResolvedAt = nullTime(resolvedAt)
	a.DismissedBy = nullString(dismissedBy)
	a.DismissedAt = nullTime(dismissedAt)

	a.Recommendations = []string{}
	if err := json.Unmarshal(jsonOrDefault(recommendations, "[]"), &a.Recommendations); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations of alert %s: %w", a.ID, err)
	}
	return &a, nil
}

// CreateIfNoActive implements RiskAlertsRepository. The partial unique index on
// (case_id, rule_id) WHERE status = 'active' makes concurrent creators race safely.
func (r *PostgresRiskAlertsRepository) CreateIfNoActive(ctx context.Context, alert *models.RiskAlert) (bool, error) {
	if alert == nil || alert.ID == "" {
		return false, fmt.Errorf("alert id is required")
	}
	if alert.CaseID == "" || alert.RuleID == "" {
		return false, fmt.Errorf("case_id and rule_id are required")
	}

	recommendations := alert.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}
	recJSON, err := json.Marshal(recommendations)
	if err != nil {
		return false, fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	query := `
		INSERT INTO risk_alerts (
			id,
			case_id,
			rule_id,
			alert_type,
			status,
			title,
			message,
			risk_score,
			confidence_level,
			recommendations,
			triggered_at,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12, $13)
		ON CONFLICT (case_id, rule_id) WHERE status = 'active' DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.CaseID,
		alert.RuleID,
		string(alert.AlertType),
		string(alert.Status),
		alert.Title,
		alert.Message,
		alert.RiskScore,
		alert.ConfidenceLevel,
		string(recJSON),
		alert.TriggeredAt,
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create risk alert: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// GetAlert implements RiskAlertsRepository.
func (r *PostgresRiskAlertsRepository) GetAlert(ctx context.Context, alertID string) (*models.RiskAlert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}

	query := `SELECT ` + riskAlertColumns + ` FROM risk_alerts WHERE id = $1`
	alert, err := scanRiskAlert(r.db.QueryRowContext(ctx, query, alertID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("alert %s: %w", alertID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// ListCaseAlerts implements RiskAlertsRepository.
func (r *PostgresRiskAlertsRepository) ListCaseAlerts(ctx context.Context, caseID string, status models.AlertStatus) ([]*models.RiskAlert, error) {
	if caseID == "" {
		return nil, fmt.Errorf("case_id is required")
	}

	query := `SELECT ` + riskAlertColumns + `
		FROM risk_alerts
		WHERE case_id = $1
		  AND ($2 = '' OR status = $2)
		ORDER BY triggered_at DESC, id
	`
	rows, err := r.db.QueryContext(ctx, query, caseID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.RiskAlert{}
	for rows.Next() {
		alert, err := scanRiskAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

// UpdateStatus implements RiskAlertsRepository.
func (r *PostgresRiskAlertsRepository) UpdateStatus(ctx context.Context, alert *models.RiskAlert, from []models.AlertStatus) (bool, error) {
	if alert == nil || alert.ID == "" {
		return false, fmt.Errorf("alert id is required")
	}
	if len(from) == 0 {
		return false, fmt.Errorf("allowed source statuses are required")
	}

	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	query := `
		UPDATE risk_alerts SET
			status = $2,
			acknowledged_by = $3,
			acknowledged_at = $4,
			resolved_by = $5,
			resolved_at = $6,
			dismissed_by = $7,
			dismissed_at = $8,
			updated_at = $9
		WHERE id = $1
		  AND status = ANY($10)
	`
	result, err := r.db.ExecContext(ctx, query,
		alert.ID,
		string(alert.Status),
		stringArg(alert.AcknowledgedBy),
		timeArg(alert.AcknowledgedAt),
		stringArg(alert.ResolvedBy),
		timeArg(alert.ResolvedAt),
		stringArg(alert.DismissedBy),
		timeArg(alert.DismissedAt),
		alert.UpdatedAt,
		pq.Array(allowed),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update alert status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// PurgeResolvedBefore implements RiskAlertsRepository.
func (r *PostgresRiskAlertsRepository) PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM risk_alerts WHERE status = 'resolved' AND resolved_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge resolved alerts: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}
