package rules

import (
	"sort"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// profileField reads one value from a risk profile. ok is false when the value is absent.
type profileField func(p *models.RiskProfile) (v float64, ok bool)

func scoreField(get func(p *models.RiskProfile) *float64) profileField {
	return func(p *models.RiskProfile) (float64, bool) {
		v := get(p)
		if v == nil {
			return 0, false
		}
		return *v, true
	}
}

// profileFields is the closed set of fields a rule may reference.
var profileFields = map[string]profileField{
	"airway_risk_score":            scoreField(func(p *models.RiskProfile) *float64 { return p.AirwayRiskScore }),
	"cardiovascular_risk_score":    scoreField(func(p *models.RiskProfile) *float64 { return p.CardiovascularRiskScore }),
	"respiratory_risk_score":       scoreField(func(p *models.RiskProfile) *float64 { return p.RespiratoryRiskScore }),
	"overall_risk_score":           scoreField(func(p *models.RiskProfile) *float64 { return p.OverallRiskScore }),
	"difficult_airway_probability": scoreField(func(p *models.RiskProfile) *float64 { return p.DifficultAirwayProbability }),
	"complication_probability":     scoreField(func(p *models.RiskProfile) *float64 { return p.ComplicationProbability }),
	"risk_factor_count": func(p *models.RiskProfile) (float64, bool) {
		return float64(len(p.RiskFactorIDs)), true
	},
}

// IsProfileField reports whether name is a known rule field.
func IsProfileField(name string) bool {
	_, ok := profileFields[name]
	return ok
}

// ProfileFields lists the known rule fields, sorted.
func ProfileFields() []string {
	names := make([]string, 0, len(profileFields))
	for name := range profileFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldValue reads a field from p. Unknown fields and absent values report ok=false.
func FieldValue(p *models.RiskProfile, field string) (float64, bool) {
	get, ok := profileFields[field]
	if !ok || p == nil {
		return 0, false
	}
	return get(p)
}
