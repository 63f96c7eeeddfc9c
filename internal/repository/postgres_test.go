package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var riskAlertRowColumns = []string{
	"id", "case_id", "rule_id", "alert_type", "status", "title", "message", "risk_score",
	"confidence_level", "recommendations", "triggered_at", "acknowledged_by", "acknowledged_at",
	"resolved_by", "resolved_at", "dismissed_by", "dismissed_at", "created_at", "updated_at",
}

var alertRuleRowColumns = []string{
	"id", "name", "description", "rule_type", "rule_config", "risk_factor_ids",
	"priority", "active", "created_at", "updated_at",
}

func testAlert() *models.RiskAlert {
	return &models.RiskAlert{
		ID:              "alert-1",
		CaseID:          "case-1",
		RuleID:          "rule-1",
		AlertType:       models.AlertTypeCritical,
		Status:          models.AlertStatusActive,
		Title:           "Alert: Riesgo General Crítico",
		Message:         "Overall risk: 85%.",
		RiskScore:       85,
		ConfidenceLevel: 50,
		TriggeredAt:     testTime,
		CreatedAt:       testTime,
		UpdatedAt:       testTime,
	}
}

// ============================================
// Risk alerts
// ============================================

func TestRiskAlerts_CreateIfNoActive(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskAlertsRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO risk_alerts`).
		WithArgs("alert-1", "case-1", "rule-1", "critical", "active",
			sqlmock.AnyArg(), sqlmock.AnyArg(), 85.0, 50.0, "[]",
			testTime, testTime, testTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	created, err := repo.CreateIfNoActive(ctx, testAlert())
	require.NoError(t, err)
	assert.True(t, created)

	// ON CONFLICT DO NOTHING: an active alert for the same case and rule already exists.
	mock.ExpectExec(`INSERT INTO risk_alerts`).WillReturnResult(sqlmock.NewResult(0, 0))
	created, err = repo.CreateIfNoActive(ctx, testAlert())
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskAlerts_CreateIfNoActiveValidation(t *testing.T) {
	db, _ := setupMockDB(t)
	repo := NewPostgresRiskAlertsRepository(db)

	_, err := repo.CreateIfNoActive(context.Background(), &models.RiskAlert{CaseID: "case-1", RuleID: "rule-1"})
	assert.Error(t, err)
	_, err = repo.CreateIfNoActive(context.Background(), &models.RiskAlert{ID: "alert-1"})
	assert.Error(t, err)
}

func TestRiskAlerts_GetAlert(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskAlertsRepository(db)

	ackAt := testTime.Add(time.Hour)
	mock.ExpectQuery(`SELECT .* FROM risk_alerts WHERE id = \$1`).
		WithArgs("alert-1").
		WillReturnRows(sqlmock.NewRows(riskAlertRowColumns).AddRow(
			"alert-1", "case-1", "rule-1", "critical", "acknowledged", "Alert: Vía Aérea Difícil",
			"Airway risk: 90%.", 90.0, 72.5, []byte(`["Videolaryngoscope available"]`), testTime,
			"clin-1", ackAt, nil, nil, nil, nil, testTime, ackAt,
		))

	alert, err := repo.GetAlert(context.Background(), "alert-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusAcknowledged, alert.Status)
	assert.Equal(t, models.AlertTypeCritical, alert.AlertType)
	assert.Equal(t, []string{"Videolaryngoscope available"}, alert.Recommendations)
	require.NotNil(t, alert.AcknowledgedBy)
	assert.Equal(t, "clin-1", *alert.AcknowledgedBy)
	require.NotNil(t, alert.AcknowledgedAt)
	assert.True(t, ackAt.Equal(*alert.AcknowledgedAt))
	assert.Nil(t, alert.ResolvedBy)
	assert.Nil(t, alert.DismissedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskAlerts_GetAlertNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskAlertsRepository(db)

	mock.ExpectQuery(`SELECT .* FROM risk_alerts`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	alert, err := repo.GetAlert(context.Background(), "missing")
	assert.Nil(t, alert)
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskAlerts_ListCaseAlerts(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskAlertsRepository(db)

	mock.ExpectQuery(`SELECT .* FROM risk_alerts`).
		WithArgs("case-1", "active").
		WillReturnRows(sqlmock.NewRows(riskAlertRowColumns).
			AddRow("alert-2", "case-1", "rule-2", "warning", "active", "t2", "m2", 65.0, 60.0,
				nil, testTime.Add(time.Minute), nil, nil, nil, nil, nil, nil, testTime, testTime).
			AddRow("alert-1", "case-1", "rule-1", "critical", "active", "t1", "m1", 85.0, 50.0,
				[]byte(`[]`), testTime, nil, nil, nil, nil, nil, nil, testTime, testTime))

	alerts, err := repo.ListCaseAlerts(context.Background(), "case-1", models.AlertStatusActive)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "alert-2", alerts[0].ID)
	assert.Equal(t, []string{}, alerts[0].Recommendations)
	assert.Equal(t, "alert-1", alerts[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskAlerts_UpdateStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskAlertsRepository(db)
	ctx := context.Background()

	by := "clin-1"
	at := testTime.Add(time.Hour)
	alert := testAlert()
	alert.Status = models.AlertStatusAcknowledged
	alert.AcknowledgedBy = &by
	alert.AcknowledgedAt = &at
	alert.UpdatedAt = at

	mock.ExpectExec(`UPDATE risk_alerts SET`).
		WithArgs("alert-1", "acknowledged", "clin-1", at, nil, nil, nil, nil, at, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	updated, err := repo.UpdateStatus(ctx, alert, models.ActionAcknowledge.AllowedFrom())
	require.NoError(t, err)
	assert.True(t, updated)

	// Another writer moved the alert first.
	mock.ExpectExec(`UPDATE risk_alerts SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	updated, err = repo.UpdateStatus(ctx, alert, models.ActionAcknowledge.AllowedFrom())
	require.NoError(t, err)
	assert.False(t, updated)

	_, err = repo.UpdateStatus(ctx, alert, nil)
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskAlerts_PurgeResolvedBefore(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskAlertsRepository(db)

	mock.ExpectExec(`DELETE FROM risk_alerts WHERE status = 'resolved'`).
		WithArgs(testTime).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PurgeResolvedBefore(context.Background(), testTime)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// Alert rules
// ============================================

func testRule() *models.AlertRule {
	return &models.AlertRule{
		ID:         "rule-1",
		Name:       "Riesgo General Crítico",
		RuleType:   models.RuleTypeThreshold,
		RuleConfig: json.RawMessage(`{"field":"overall_risk_score","operator":">=","threshold":80}`),
		Priority:   1,
		Active:     true,
	}
}

func TestAlertRules_List(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresAlertRulesRepository(db)

	mock.ExpectQuery(`SELECT .* FROM alert_rules`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(alertRuleRowColumns).
			AddRow("rule-1", "Riesgo General Crítico", "", "threshold",
				[]byte(`{"field":"overall_risk_score","operator":">=","threshold":80}`),
				"{f-1,f-2}", 1, true, testTime, testTime).
			AddRow("rule-2", "Vía Aérea Difícil", "", "trend", nil, "{}", 2, true, testTime, testTime))

	list, err := repo.ListAlertRules(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"f-1", "f-2"}, list[0].RiskFactorIDs)
	assert.JSONEq(t, `{"field":"overall_risk_score","operator":">=","threshold":80}`, string(list[0].RuleConfig))
	assert.Equal(t, []string{}, list[1].RiskFactorIDs)
	assert.Equal(t, "{}", string(list[1].RuleConfig))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRules_GetNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresAlertRulesRepository(db)

	mock.ExpectQuery(`SELECT .* FROM alert_rules WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetAlertRule(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRules_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresAlertRulesRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO alert_rules`).
		WithArgs("rule-1", "Riesgo General Crítico", "", "threshold",
			sqlmock.AnyArg(), "{}", 1, true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(testTime, testTime))

	rule := testRule()
	require.NoError(t, repo.CreateAlertRule(ctx, rule))
	assert.Equal(t, testTime, rule.CreatedAt)

	mock.ExpectQuery(`INSERT INTO alert_rules`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	err := repo.CreateAlertRule(ctx, testRule())
	assert.ErrorIs(t, err, models.ErrConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRules_Update(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresAlertRulesRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`UPDATE alert_rules SET`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(testTime, testTime.Add(time.Hour)))
	rule := testRule()
	require.NoError(t, repo.UpdateAlertRule(ctx, rule))
	assert.Equal(t, testTime.Add(time.Hour), rule.UpdatedAt)

	mock.ExpectQuery(`UPDATE alert_rules SET`).WillReturnError(sql.ErrNoRows)
	assert.ErrorIs(t, repo.UpdateAlertRule(ctx, testRule()), models.ErrNotFound)

	mock.ExpectQuery(`UPDATE alert_rules SET`).WillReturnError(&pq.Error{Code: "23505"})
	assert.ErrorIs(t, repo.UpdateAlertRule(ctx, testRule()), models.ErrConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRules_CreateIfAbsent(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresAlertRulesRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO alert_rules .* ON CONFLICT \(name\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	created, err := repo.CreateAlertRuleIfAbsent(ctx, testRule())
	require.NoError(t, err)
	assert.True(t, created)

	mock.ExpectExec(`INSERT INTO alert_rules`).WillReturnResult(sqlmock.NewResult(0, 0))
	created, err = repo.CreateAlertRuleIfAbsent(ctx, testRule())
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// Risk profiles
// ============================================

var riskProfileRowColumns = []string{
	"id", "case_id", "airway", "cardio", "resp", "overall", "difficult", "complication",
	"factor_ids", "calculated_at", "calculation_version", "created_at", "updated_at",
}

func TestRiskProfiles_GetByCaseID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskProfilesRepository(db)

	mock.ExpectQuery(`FROM risk_profiles rp`).
		WithArgs("case-1").
		WillReturnRows(sqlmock.NewRows(riskProfileRowColumns).AddRow(
			"profile-1", "case-1", 80.0, 45.0, nil, 63.5, 0.7, 0.35,
			"{f-1}", testTime, "1.0", testTime, testTime,
		))

	p, err := repo.GetByCaseID(context.Background(), "case-1")
	require.NoError(t, err)
	require.NotNil(t, p.AirwayRiskScore)
	assert.Equal(t, 80.0, *p.AirwayRiskScore)
	assert.Nil(t, p.RespiratoryRiskScore)
	assert.Equal(t, 63.5, p.Overall())
	assert.Equal(t, []string{"f-1"}, p.RiskFactorIDs)
	assert.Equal(t, "1.0", p.CalculationVersion)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskProfiles_GetByCaseIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskProfilesRepository(db)

	mock.ExpectQuery(`FROM risk_profiles rp`).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByCaseID(context.Background(), "case-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskProfiles_Upsert(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskProfilesRepository(db)

	overall := 63.5
	profile := &models.RiskProfile{
		ID:                 "profile-new",
		CaseID:             "case-1",
		OverallRiskScore:   &overall,
		RiskFactorIDs:      []string{"f-1", "f-2"},
		CalculatedAt:       testTime,
		CalculationVersion: "1.0",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO risk_profiles .* ON CONFLICT \(case_id\) DO UPDATE`).
		WithArgs("profile-new", "case-1", nil, nil, nil, 63.5, nil, nil, testTime, "1.0").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("profile-1", testTime.Add(-time.Hour)))
	mock.ExpectExec(`DELETE FROM risk_profile_factors WHERE profile_id = \$1`).
		WithArgs("profile-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO risk_profile_factors`).
		WithArgs("profile-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Upsert(context.Background(), profile))
	assert.Equal(t, "profile-1", profile.ID)
	assert.Equal(t, testTime.Add(-time.Hour), profile.CreatedAt)
	assert.Equal(t, testTime, profile.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskProfiles_UpsertRequiresID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskProfilesRepository(db)

	assert.Error(t, repo.Upsert(context.Background(), &models.RiskProfile{CaseID: "case-1", CalculatedAt: testTime}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskProfiles_UpsertWithoutFactorsRollsBackOnError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskProfilesRepository(db)

	profile := &models.RiskProfile{ID: "profile-1", CaseID: "case-1", CalculatedAt: testTime}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO risk_profiles`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("profile-1", testTime))
	mock.ExpectExec(`DELETE FROM risk_profile_factors`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	assert.Error(t, repo.Upsert(context.Background(), profile))
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// Risk factors
// ============================================

var riskFactorRowColumns = []string{
	"id", "name", "description", "category", "severity", "active", "applicability", "created_at", "updated_at",
}

func TestRiskFactors_List(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskFactorsRepository(db)

	rows := sqlmock.NewRows(riskFactorRowColumns).
		AddRow("f-1", "Mallampati Alto (III-IV)", "", "airway", "high", true,
			[]byte(`{"kind":"compare","field":"mallampati","operator":">=","value":3}`), testTime, testTime).
		AddRow("f-2", "Sin predicado", "", "general", "low", true, nil, testTime, testTime)
	mock.ExpectQuery(`SELECT .* FROM risk_factors WHERE \(\$1 = FALSE OR active = TRUE\) ORDER BY category, name`).
		WithArgs(true).
		WillReturnRows(rows)

	factors, err := repo.ListRiskFactors(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, factors, 2)

	assert.Equal(t, models.CategoryAirway, factors[0].Category)
	assert.Equal(t, models.SeverityHigh, factors[0].Severity)
	require.NotNil(t, factors[0].Applicability)
	assert.Equal(t, "mallampati", factors[0].Applicability.Field)
	assert.Nil(t, factors[1].Applicability)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskFactors_UpsertByName(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRiskFactorsRepository(db)
	ctx := context.Background()

	factor := &models.RiskFactor{
		ID:       "f-new",
		Name:     "Edad Avanzada",
		Category: models.CategoryGeneral,
		Severity: models.SeverityMedium,
		Active:   true,
	}

	mock.ExpectQuery(`INSERT INTO risk_factors .* ON CONFLICT \(name\) DO UPDATE .* RETURNING id::text, \(xmax = 0\)`).
		WithArgs("f-new", "Edad Avanzada", "", "general", "medium", true, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created"}).AddRow("f-new", true))
	created, err := repo.UpsertRiskFactorByName(ctx, factor)
	require.NoError(t, err)
	assert.True(t, created)

	// same name again: the stored id is kept
	factor.ID = "f-other"
	mock.ExpectQuery(`INSERT INTO risk_factors`).
		WithArgs("f-other", "Edad Avanzada", "", "general", "medium", true, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created"}).AddRow("f-new", false))
	created, err = repo.UpsertRiskFactorByName(ctx, factor)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "f-new", factor.ID)

	_, err = repo.UpsertRiskFactorByName(ctx, &models.RiskFactor{Name: "Sin id"})
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// Notifications and cases
// ============================================

func TestNotifications_CreateAndMark(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresNotificationsRepository(db)
	ctx := context.Background()

	n := &models.AlertNotification{
		ID:          "n-1",
		AlertID:     "alert-1",
		RecipientID: "clin-1",
		Channel:     models.ChannelEmail,
		Status:      models.NotificationPending,
		CreatedAt:   testTime,
	}

	mock.ExpectExec(`INSERT INTO alert_notifications`).
		WithArgs("n-1", "alert-1", "clin-1", "email", "pending", testTime, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	created, err := repo.CreateNotification(ctx, n)
	require.NoError(t, err)
	assert.True(t, created)

	mock.ExpectExec(`INSERT INTO alert_notifications`).WillReturnResult(sqlmock.NewResult(0, 0))
	created, err = repo.CreateNotification(ctx, n)
	require.NoError(t, err)
	assert.False(t, created)

	mock.ExpectExec(`UPDATE alert_notifications SET status = 'sent', .* WHERE id = \$1 AND status = 'pending'`).
		WithArgs("n-1", testTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkSent(ctx, "n-1", testTime))

	// already sent: a late failure must not overwrite it
	mock.ExpectExec(`UPDATE alert_notifications SET status = 'failed', .* WHERE id = \$1 AND status = 'pending'`).
		WithArgs("n-1", "gateway timeout").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkFailed(ctx, "n-1", "gateway timeout"), models.ErrConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCases_GetCase(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresCasesRepository(db)

	mock.ExpectQuery(`FROM treatment_cases tc`).
		WithArgs("case-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "folio", "patient_name", "active", "cid", "full_name", "email"}).
			AddRow("case-1", "F-2024-001", "Juan Pérez", true, "clin-1", "Dra. Ana López", "ana@example.com"))
	mock.ExpectQuery(`FROM case_clinicians cc`).
		WithArgs("case-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email"}).
			AddRow("clin-2", "Dr. Luis Ruiz", nil))

	tc, err := repo.GetCase(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, "F-2024-001", tc.Folio)
	assert.Equal(t, "ana@example.com", tc.ResponsibleClinician.Email)
	require.Len(t, tc.SecondaryClinicians, 1)
	assert.Equal(t, "clin-2", tc.SecondaryClinicians[0].ID)
	assert.Empty(t, tc.SecondaryClinicians[0].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCases_GetCaseNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresCasesRepository(db)

	mock.ExpectQuery(`FROM treatment_cases tc`).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetCase(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
