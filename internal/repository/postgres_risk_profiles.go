package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MagicKrazik/ALPHA/internal/models"

	"github.com/lib/pq"
)

// PostgresRiskProfilesRepository implements RiskProfilesRepository.
type PostgresRiskProfilesRepository struct {
	db *sql.DB
}

// NewPostgresRiskProfilesRepository creates the repository.
func NewPostgresRiskProfilesRepository(db *sql.DB) *PostgresRiskProfilesRepository {
	return &PostgresRiskProfilesRepository{db: db}
}

var _ RiskProfilesRepository = (*PostgresRiskProfilesRepository)(nil)

// GetByCaseID implements RiskProfilesRepository.
func (r *PostgresRiskProfilesRepository) GetByCaseID(ctx context.Context, caseID string) (*models.RiskProfile, error) {
	if caseID == "" {
		return nil, fmt.Errorf("case_id is required")
	}

	query := `
		SELECT
			rp.id::text,
			rp.case_id::text,
			rp.airway_risk_score,
			rp.cardiovascular_risk_score,
			rp.respiratory_risk_score,
			rp.overall_risk_score,
			rp.difficult_airway_probability,
			rp.complication_probability,
			COALESCE(
				(SELECT array_agg(rpf.risk_factor_id::text ORDER BY rpf.risk_factor_id::text)
				 FROM risk_profile_factors rpf
				 WHERE rpf.profile_id = rp.id),
				'{}'
			),
			rp.calculated_at,
			rp.calculation_version,
			rp.created_at,
			rp.updated_at
		FROM risk_profiles rp
		WHERE rp.case_id = $1
	`

	var p models.RiskProfile
	var airway, cardio, resp, overall, difficult, complication sql.NullFloat64
	var factorIDs pq.StringArray

	err := r.db.QueryRowContext(ctx, query, caseID).Scan(
		&p.ID,
		&p.CaseID,
		&airway,
		&cardio,
		&resp,
		&overall,
		&difficult,
		&complication,
		&factorIDs,
		&p.CalculatedAt,
		&p.CalculationVersion,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("risk profile for case %s: %w", caseID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get risk profile: %w", err)
	}

	p.AirwayRiskScore = nullFloat(airway)
	p.CardiovascularRiskScore = nullFloat(cardio)
	p.RespiratoryRiskScore = nullFloat(resp)
	p.OverallRiskScore = nullFloat(overall)
	p.DifficultAirwayProbability = nullFloat(difficult)
	p.ComplicationProbability = nullFloat(complication)
	p.RiskFactorIDs = []string(factorIDs)
	if p.RiskFactorIDs == nil {
		p.RiskFactorIDs = []string{}
	}

	return &p, nil
}

// Upsert implements RiskProfilesRepository.
func (r *PostgresRiskProfilesRepository) Upsert(ctx context.Context, profile *models.RiskProfile) error {
	if profile == nil {
		return fmt.Errorf("profile is required")
	}
	if profile.CaseID == "" {
		return fmt.Errorf("case_id is required")
	}
	if profile.ID == "" {
		return fmt.Errorf("profile id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The conflict target keeps the first id for the life of the case.
	upsertQuery := `
		INSERT INTO risk_profiles (
			id,
			case_id,
			airway_risk_score,
			cardiovascular_risk_score,
			respiratory_risk_score,
			overall_risk_score,
			difficult_airway_probability,
			complication_probability,
			calculated_at,
			calculation_version,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $9, $9)
		ON CONFLICT (case_id) DO UPDATE SET
			airway_risk_score = EXCLUDED.airway_risk_score,
			cardiovascular_risk_score = EXCLUDED.cardiovascular_risk_score,
			respiratory_risk_score = EXCLUDED.respiratory_risk_score,
			overall_risk_score = EXCLUDED.overall_risk_score,
			difficult_airway_probability = EXCLUDED.difficult_airway_probability,
			complication_probability = EXCLUDED.complication_probability,
			calculated_at = EXCLUDED.calculated_at,
			calculation_version = EXCLUDED.calculation_version,
			updated_at = EXCLUDED.updated_at
		RETURNING id::text, created_at
	`

	err = tx.QueryRowContext(ctx, upsertQuery,
		profile.ID,
		profile.CaseID,
		floatArg(profile.AirwayRiskScore),
		floatArg(profile.CardiovascularRiskScore),
		floatArg(profile.RespiratoryRiskScore),
		floatArg(profile.OverallRiskScore),
		floatArg(profile.DifficultAirwayProbability),
		floatArg(profile.ComplicationProbability),
		profile.CalculatedAt,
		profile.CalculationVersion,
	).Scan(&profile.ID, &profile.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert risk profile: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM risk_profile_factors WHERE profile_id = $1`, profile.ID); err != nil {
		return fmt.Errorf("failed to clear profile factors: %w", err)
	}

	if len(profile.RiskFactorIDs) > 0 {
		insertFactors := `
			INSERT INTO risk_profile_factors (profile_id, risk_factor_id)
			SELECT $1, unnest($2::uuid[])
		`
		if _, err := tx.ExecContext(ctx, insertFactors, profile.ID, pq.Array(profile.RiskFactorIDs)); err != nil {
			return fmt.Errorf("failed to insert profile factors: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	profile.UpdatedAt = profile.CalculatedAt
	return nil
}
