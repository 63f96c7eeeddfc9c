package scoring

import (
	"errors"
	"fmt"
	"sort"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// ErrInvalidApplicability is returned when a risk factor predicate references an unknown field or operator.
var ErrInvalidApplicability = errors.New("invalid risk factor applicability")

// assessmentField reads one numeric value from an assessment. ok is false when the value was not captured.
type assessmentField func(a *models.PreAssessment) (v float64, ok bool)

func intField(get func(a *models.PreAssessment) *int) assessmentField {
	return func(a *models.PreAssessment) (float64, bool) {
		p := get(a)
		if p == nil {
			return 0, false
		}
		return float64(*p), true
	}
}

func floatField(get func(a *models.PreAssessment) *float64) assessmentField {
	return func(a *models.PreAssessment) (float64, bool) {
		p := get(a)
		if p == nil {
			return 0, false
		}
		return *p, true
	}
}

func boolField(get func(a *models.PreAssessment) bool) assessmentField {
	return func(a *models.PreAssessment) (float64, bool) {
		if get(a) {
			return 1, true
		}
		return 0, true
	}
}

var assessmentFields = map[string]assessmentField{
	"mallampati":             intField(func(a *models.PreAssessment) *int { return a.Mallampati }),
	"patil_aldrete":          intField(func(a *models.PreAssessment) *int { return a.PatilAldrete }),
	"macocha":                intField(func(a *models.PreAssessment) *int { return a.Macocha }),
	"stop_bang":              intField(func(a *models.PreAssessment) *int { return a.StopBang }),
	"asa_class":              intField(func(a *models.PreAssessment) *int { return a.ASAClass }),
	"age":                    intField(func(a *models.PreAssessment) *int { return a.Age }),
	"fasting_hours":          intField(func(a *models.PreAssessment) *int { return a.FastingHours }),
	"heart_rate":             intField(func(a *models.PreAssessment) *int { return a.HeartRate }),
	"spo2_room_air":          intField(func(a *models.PreAssessment) *int { return a.SpO2RoomAir }),
	"glasgow":                intField(func(a *models.PreAssessment) *int { return a.Glasgow }),
	"bmi":                    floatField(func(a *models.PreAssessment) *float64 { return a.BMI }),
	"inter_incisor_cm":       floatField(func(a *models.PreAssessment) *float64 { return a.InterIncisorCm }),
	"thyromental_cm":         floatField(func(a *models.PreAssessment) *float64 { return a.ThyromentalCm }),
	"tracheal_deviation_cm":  floatField(func(a *models.PreAssessment) *float64 { return a.TrachealDeviationCm }),
	"prior_difficult_airway": boolField(func(a *models.PreAssessment) bool { return a.PriorDifficulty }),
	"swallowing_problems":    boolField(func(a *models.PreAssessment) bool { return a.SwallowingProblems }),
	"laryngeal_stridor":      boolField(func(a *models.PreAssessment) bool { return a.LaryngealStridor }),
	"smoking":                boolField(func(a *models.PreAssessment) bool { return a.Smoking }),
	"glp1_use":               boolField(func(a *models.PreAssessment) bool { return a.GLP1Use }),
	"systolic_bp": func(a *models.PreAssessment) (float64, bool) {
		sys, _, ok := ParseBloodPressure(a.BloodPressure)
		return float64(sys), ok
	},
	"diastolic_bp": func(a *models.PreAssessment) (float64, bool) {
		_, dia, ok := ParseBloodPressure(a.BloodPressure)
		return float64(dia), ok
	},
	"comorbidity_count": func(a *models.PreAssessment) (float64, bool) {
		return float64(ComorbidityCount(a.Comorbidities)), true
	},
}

// AssessmentFields lists the field names usable in a compare predicate, sorted.
func AssessmentFields() []string {
	names := make([]string, 0, len(assessmentFields))
	for name := range assessmentFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateApplicability checks every node of a predicate tree. A nil predicate is valid and never applies.
func ValidateApplicability(p *models.Applicability) error {
	if p == nil {
		return nil
	}
	switch p.Kind {
	case models.PredicateCompare:
		if _, ok := assessmentFields[p.Field]; !ok {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidApplicability, p.Field)
		}
		if !p.Operator.Valid() {
			return fmt.Errorf("%w: unknown operator %q on field %s", ErrInvalidApplicability, string(p.Operator), p.Field)
		}
	case models.PredicateMentions:
		if len(p.Terms) == 0 {
			return fmt.Errorf("%w: mentions without terms", ErrInvalidApplicability)
		}
	case models.PredicateAll, models.PredicateAny:
		if len(p.Of) == 0 {
			return fmt.Errorf("%w: %s without predicates", ErrInvalidApplicability, p.Kind)
		}
		for i := range p.Of {
			if err := ValidateApplicability(&p.Of[i]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidApplicability, string(p.Kind))
	}
	return nil
}

// Applies evaluates a predicate. Absent values and invalid nodes evaluate to false.
func Applies(p *models.Applicability, a *models.PreAssessment) bool {
	if p == nil || a == nil {
		return false
	}
	switch p.Kind {
	case models.PredicateCompare:
		get, ok := assessmentFields[p.Field]
		if !ok {
			return false
		}
		v, ok := get(a)
		if !ok {
			return false
		}
		matched, err := p.Operator.Compare(v, p.Value)
		return err == nil && matched
	case models.PredicateMentions:
		return mentionsAny(a.Comorbidities, p.Terms)
	case models.PredicateAll:
		if len(p.Of) == 0 {
			return false
		}
		for i := range p.Of {
			if !Applies(&p.Of[i], a) {
				return false
			}
		}
		return true
	case models.PredicateAny:
		for i := range p.Of {
			if Applies(&p.Of[i], a) {
				return true
			}
		}
	}
	return false
}

// ApplicableFactors returns the sorted ids of the active factors whose predicate matches a.
func ApplicableFactors(factors []*models.RiskFactor, a *models.PreAssessment) []string {
	ids := make([]string, 0)
	for _, f := range factors {
		if f == nil || !f.Active {
			continue
		}
		if Applies(f.Applicability, a) {
			ids = append(ids, f.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
