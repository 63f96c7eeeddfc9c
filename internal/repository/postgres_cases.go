package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// PostgresCasesRepository reads treatment_cases, clinicians, case_clinicians and pre_assessments.
type PostgresCasesRepository struct {
	db *sql.DB
}

// NewPostgresCasesRepository creates the repository.
func NewPostgresCasesRepository(db *sql.DB) *PostgresCasesRepository {
	return &PostgresCasesRepository{db: db}
}

var _ CasesRepository = (*PostgresCasesRepository)(nil)

// GetCase implements CasesRepository.
func (r *PostgresCasesRepository) GetCase(ctx context.Context, caseID string) (*models.TreatmentCase, error) {
	if caseID == "" {
		return nil, fmt.Errorf("case_id is required")
	}

	query := `
		SELECT
			tc.id::text,
			tc.folio,
			tc.patient_name,
			tc.active,
			c.id::text,
			c.full_name,
			c.email
		FROM treatment_cases tc
		JOIN clinicians c ON c.id = tc.responsible_clinician_id
		WHERE tc.id = $1
	`

	var tc models.TreatmentCase
	var email sql.NullString
	err := r.db.QueryRowContext(ctx, query, caseID).Scan(
		&tc.ID,
		&tc.Folio,
		&tc.PatientName,
		&tc.Active,
		&tc.ResponsibleClinician.ID,
		&tc.ResponsibleClinician.FullName,
		&email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("case %s: %w", caseID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	tc.ResponsibleClinician.Email = email.String

	secondaryQuery := `
		SELECT c.id::text, c.full_name, c.email
		FROM case_clinicians cc
		JOIN clinicians c ON c.id = cc.clinician_id
		WHERE cc.case_id = $1
		ORDER BY cc.created_at, c.id
	`
	rows, err := r.db.QueryContext(ctx, secondaryQuery, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list secondary clinicians: %w", err)
	}
	defer rows.Close()

	tc.SecondaryClinicians = []models.Clinician{}
	for rows.Next() {
		var c models.Clinician
		var cEmail sql.NullString
		if err := rows.Scan(&c.ID, &c.FullName, &cEmail); err != nil {
			return nil, fmt.Errorf("failed to scan clinician: %w", err)
		}
		c.Email = cEmail.String
		tc.SecondaryClinicians = append(tc.SecondaryClinicians, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clinicians: %w", err)
	}

	return &tc, nil
}

// GetPreAssessment implements CasesRepository.
func (r *PostgresCasesRepository) GetPreAssessment(ctx context.Context, caseID string) (*models.PreAssessment, error) {
	if caseID == "" {
		return nil, fmt.Errorf("case_id is required")
	}

	query := `
		SELECT
			pa.case_id::text,
			pa.mallampati,
			pa.patil_aldrete,
			pa.inter_incisor_cm,
			pa.thyromental_cm,
			pa.macocha,
			pa.stop_bang,
			pa.tracheal_deviation_cm,
			pa.prior_difficult_airway,
			pa.swallowing_problems,
			pa.laryngeal_stridor,
			pa.asa_class,
			pa.bmi,
			tc.patient_age,
			pa.fasting_hours,
			pa.smoking,
			pa.glp1_use,
			pa.comorbidities,
			pa.heart_rate,
			pa.blood_pressure,
			pa.spo2_room_air,
			pa.glasgow,
			pa.updated_at
		FROM pre_assessments pa
		JOIN treatment_cases tc ON tc.id = pa.case_id
		WHERE pa.case_id = $1
	`

	var a models.PreAssessment
	var mallampati, patil, macocha, stopBang, asa, age, fasting, heartRate, spo2, glasgow sql.NullInt32
	var interIncisor, thyromental, deviation, bmi sql.NullFloat64
	var prior, swallowing, stridor, smoking, glp1 sql.NullBool
	var comorbidities, bloodPressure sql.NullString

	err := r.db.QueryRowContext(ctx, query, caseID).Scan(
		&a.CaseID,
		&mallampati,
		&patil,
		&interIncisor,
		&thyromental,
		&macocha,
		&stopBang,
		&deviation,
		&prior,
		&swallowing,
		&stridor,
		&asa,
		&bmi,
		&age,
		&fasting,
		&smoking,
		&glp1,
		&comorbidities,
		&heartRate,
		&bloodPressure,
		&spo2,
		&glasgow,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pre-assessment for case %s: %w", caseID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pre-assessment: %w", err)
	}

	a.Mallampati = nullInt(mallampati)
	a.PatilAldrete = nullInt(patil)
	a.InterIncisorCm = nullFloat(interIncisor)
	a.ThyromentalCm = nullFloat(thyromental)
	a.Macocha = nullInt(macocha)
	a.StopBang = nullInt(stopBang)
	a.TrachealDeviationCm = nullFloat(deviation)
	a.PriorDifficulty = prior.Bool
	a.SwallowingProblems = swallowing.Bool
	a.LaryngealStridor = stridor.Bool
	a.ASAClass = nullInt(asa)
	a.BMI = nullFloat(bmi)
	a.Age = nullInt(age)
	a.FastingHours = nullInt(fasting)
	a.Smoking = smoking.Bool
	a.GLP1Use = glp1.Bool
	a.Comorbidities = comorbidities.String
	a.HeartRate = nullInt(heartRate)
	a.BloodPressure = bloodPressure.String
	a.SpO2RoomAir = nullInt(spo2)
	a.Glasgow = nullInt(glasgow)

	return &a, nil
}

// ListActiveAssessedCaseIDs implements CasesRepository.
func (r *PostgresCasesRepository) ListActiveAssessedCaseIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT tc.id::text
		FROM treatment_cases tc
		JOIN pre_assessments pa ON pa.case_id = tc.id
		WHERE tc.active = TRUE
		ORDER BY tc.id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active cases: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan case id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cases: %w", err)
	}
	return ids, nil
}
