package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// PostgresRiskFactorsRepository implements RiskFactorsRepository.
type PostgresRiskFactorsRepository struct {
	db *sql.DB
}

// NewPostgresRiskFactorsRepository creates the repository.
func NewPostgresRiskFactorsRepository(db *sql.DB) *PostgresRiskFactorsRepository {
	return &PostgresRiskFactorsRepository{db: db}
}

var _ RiskFactorsRepository = (*PostgresRiskFactorsRepository)(nil)

// ListRiskFactors implements RiskFactorsRepository.
func (r *PostgresRiskFactorsRepository) ListRiskFactors(ctx context.Context, activeOnly bool) ([]*models.RiskFactor, error) {
	query := `
		SELECT
			id::text,
			name,
			description,
			category,
			severity,
			active,
			applicability,
			created_at,
			updated_at
		FROM risk_factors
		WHERE ($1 = FALSE OR active = TRUE)
		ORDER BY category, name
	`

	rows, err := r.db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list risk factors: %w", err)
	}
	defer rows.Close()

	factors := []*models.RiskFactor{}
	for rows.Next() {
		var f models.RiskFactor
		var category, severity string
		var applicability []byte
		if err := rows.Scan(
			&f.ID,
			&f.Name,
			&f.Description,
			&category,
			&severity,
			&f.Active,
			&applicability,
			&f.CreatedAt,
			&f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan risk factor: %w", err)
		}
		f.Category = models.RiskFactorCategory(category)
		f.Severity = models.Severity(severity)

		if len(applicability) > 0 && string(applicability) != "null" {
			var a models.Applicability
			if err := json.Unmarshal(applicability, &a); err != nil {
				return nil, fmt.Errorf("failed to decode applicability of risk factor %s: %w", f.ID, err)
			}
			f.Applicability = &a
		}
		factors = append(factors, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate risk factors: %w", err)
	}
	return factors, nil
}

// UpsertRiskFactorByName implements RiskFactorsRepository.
func (r *PostgresRiskFactorsRepository) UpsertRiskFactorByName(ctx context.Context, factor *models.RiskFactor) (bool, error) {
	if factor == nil || factor.Name == "" {
		return false, fmt.Errorf("risk factor name is required")
	}
	if factor.ID == "" {
		return false, fmt.Errorf("risk factor id is required")
	}

	var applicability interface{}
	if factor.Applicability != nil {
		b, err := json.Marshal(factor.Applicability)
		if err != nil {
			return false, fmt.Errorf("failed to marshal applicability: %w", err)
		}
		applicability = string(b)
	}

	// xmax = 0 only for freshly inserted tuples.
	query := `
		INSERT INTO risk_factors (
			id, name, description, category, severity, active, applicability, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, now(), now())
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			severity = EXCLUDED.severity,
			active = EXCLUDED.active,
			applicability = EXCLUDED.applicability,
			updated_at = now()
		RETURNING id::text, (xmax = 0)
	`

	var created bool
	err := r.db.QueryRowContext(ctx, query,
		factor.ID,
		factor.Name,
		factor.Description,
		string(factor.Category),
		string(factor.Severity),
		factor.Active,
		applicability,
	).Scan(&factor.ID, &created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert risk factor %q: %w", factor.Name, err)
	}
	return created, nil
}
