package scoring

import (
	"testing"

	"github.com/MagicKrazik/ALPHA/internal/models"

	"github.com/stretchr/testify/assert"
)

func compare(field string, op models.Operator, v float64) models.Applicability {
	return models.Applicability{Kind: models.PredicateCompare, Field: field, Operator: op, Value: v}
}

func TestValidateApplicability(t *testing.T) {
	tests := []struct {
		name    string
		p       *models.Applicability
		wantErr bool
	}{
		{"nil", nil, false},
		{"compare", &models.Applicability{Kind: models.PredicateCompare, Field: "bmi", Operator: ">=", Value: 30}, false},
		{"unknown field", &models.Applicability{Kind: models.PredicateCompare, Field: "weight", Operator: ">=", Value: 30}, true},
		{"unknown operator", &models.Applicability{Kind: models.PredicateCompare, Field: "bmi", Operator: "!=", Value: 30}, true},
		{"mentions", &models.Applicability{Kind: models.PredicateMentions, Terms: []string{"asma"}}, false},
		{"mentions without terms", &models.Applicability{Kind: models.PredicateMentions}, true},
		{"empty any", &models.Applicability{Kind: models.PredicateAny}, true},
		{"nested invalid", &models.Applicability{
			Kind: models.PredicateAll,
			Of:   []models.Applicability{compare("bmi", ">=", 30), compare("height", ">", 1)},
		}, true},
		{"unknown kind", &models.Applicability{Kind: "regex"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateApplicability(tt.p)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidApplicability)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplies(t *testing.T) {
	a := &models.PreAssessment{
		BMI:           floatPtr(36),
		Smoking:       true,
		BloodPressure: "170/95",
		Comorbidities: "Apnea obstructiva del sueño, Hipertensión",
	}

	obese := compare("bmi", models.OperatorGTE, 35)
	smoker := compare("smoking", models.OperatorEQ, 1)
	hypertensive := compare("systolic_bp", models.OperatorGT, 160)
	mallampati := compare("mallampati", models.OperatorGTE, 3)

	assert.True(t, Applies(&obese, a))
	assert.True(t, Applies(&smoker, a))
	assert.True(t, Applies(&hypertensive, a))
	// missing value never applies, whatever the operator
	assert.False(t, Applies(&mallampati, a))
	lowMallampati := compare("mallampati", models.OperatorLT, 3)
	assert.False(t, Applies(&lowMallampati, a))

	assert.True(t, Applies(&models.Applicability{Kind: models.PredicateMentions, Terms: []string{"hipertension"}}, a))
	assert.False(t, Applies(&models.Applicability{Kind: models.PredicateMentions, Terms: []string{"asma"}}, a))

	all := &models.Applicability{Kind: models.PredicateAll, Of: []models.Applicability{obese, smoker}}
	assert.True(t, Applies(all, a))
	mixed := &models.Applicability{Kind: models.PredicateAll, Of: []models.Applicability{obese, mallampati}}
	assert.False(t, Applies(mixed, a))
	anyOf := &models.Applicability{Kind: models.PredicateAny, Of: []models.Applicability{mallampati, smoker}}
	assert.True(t, Applies(anyOf, a))

	assert.False(t, Applies(nil, a))
}

func TestApplicableFactors(t *testing.T) {
	obese := compare("bmi", models.OperatorGTE, 35)
	asa := compare("asa_class", models.OperatorGTE, 3)
	factors := []*models.RiskFactor{
		{ID: "f-3", Active: true, Applicability: &obese},
		{ID: "f-1", Active: true, Applicability: &asa},
		{ID: "f-2", Active: false, Applicability: &obese},
		{ID: "f-4", Active: true},
	}
	a := &models.PreAssessment{BMI: floatPtr(40), ASAClass: intPtr(3)}

	assert.Equal(t, []string{"f-1", "f-3"}, ApplicableFactors(factors, a))
	assert.Equal(t, []string{}, ApplicableFactors(factors, &models.PreAssessment{}))
}

func TestAssessmentFields_Sorted(t *testing.T) {
	fields := AssessmentFields()

	assert.Contains(t, fields, "mallampati")
	assert.Contains(t, fields, "comorbidity_count")
	assert.IsIncreasing(t, fields)
}
