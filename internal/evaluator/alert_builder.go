package evaluator

import (
	"fmt"
	"strings"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/models"
	"github.com/MagicKrazik/ALPHA/internal/scoring"

	"github.com/google/uuid"
)

const (
	defaultConfidence = 50.0
	minConfidence     = 30.0
	maxConfidence     = 95.0

	// highRiskOverall adds the high-risk recommendations.
	highRiskOverall = 70.0
)

var (
	airwayKeywords         = []string{"via aerea", "airway"}
	cardiovascularKeywords = []string{"cardiovascular"}
	complicationKeywords   = []string{"complicacion", "complication"}
)

var (
	airwayRecommendations = []string{
		"Prepare the difficult airway cart",
		"Consider video laryngoscopy",
		"Have a laryngeal mask airway available",
		"Prepare equipment for a surgical airway",
		"Consider awake intubation if needed",
	}
	cardiovascularRecommendations = []string{
		"Continuous cardiovascular monitoring",
		"Optimize preoperative hemodynamic status",
		"Consider a cardiology consultation",
		"Prepare vasoactive medication",
		"Invasive monitoring if indicated",
	}
	highRiskRecommendations = []string{
		"Inform the patient about the elevated risk",
		"Document a detailed informed consent",
		"Consider deferring surgery if possible",
		"Prepare resuscitation equipment",
		"Notify the surgical team about the risk",
	}
)

// AlertTypeFor classifies an overall score.
func AlertTypeFor(overall float64) models.AlertType {
	switch {
	case overall >= 80:
		return models.AlertTypeCritical
	case overall >= 60:
		return models.AlertTypeWarning
	case overall >= 40:
		return models.AlertTypePreventive
	}
	return models.AlertTypeInformational
}

// AlertBuilder turns a triggered rule into a new active alert.
type AlertBuilder struct {
	now   func() time.Time
	newID func() string
}

// NewAlertBuilder creates a builder using the wall clock and random UUIDs.
func NewAlertBuilder() *AlertBuilder {
	return &AlertBuilder{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Build creates the alert for rule firing on profile.
func (b *AlertBuilder) Build(rule *models.AlertRule, profile *models.RiskProfile) *models.RiskAlert {
	now := b.now()
	overall := profile.Overall()
	title, message := AlertMessage(rule, profile)

	return &models.RiskAlert{
		ID:              b.newID(),
		CaseID:          profile.CaseID,
		RuleID:          rule.ID,
		AlertType:       AlertTypeFor(overall),
		Status:          models.AlertStatusActive,
		Title:           title,
		Message:         message,
		RiskScore:       overall,
		ConfidenceLevel: Confidence(profile),
		Recommendations: Recommendations(rule, profile),
		TriggeredAt:     now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AlertMessage picks the title and message template from the rule name.
// Every message carries the overall score.
func AlertMessage(rule *models.AlertRule, profile *models.RiskProfile) (title, message string) {
	name := scoring.Fold(rule.Name)
	overall := profile.Overall()

	switch {
	case containsAny(name, airwayKeywords):
		title = "Difficult Airway Alert"
		message = fmt.Sprintf(
			"The patient has an elevated risk (%.0f%%) of difficult airway. Difficulty probability: %.0f%%.",
			overall, value(profile.DifficultAirwayProbability))
	case containsAny(name, cardiovascularKeywords):
		title = "Cardiovascular Risk Alert"
		message = fmt.Sprintf(
			"The patient has an elevated cardiovascular risk (%.0f%%), overall risk %.0f%%. "+
				"Cardiology evaluation and continuous monitoring are recommended.",
			value(profile.CardiovascularRiskScore), overall)
	case containsAny(name, complicationKeywords):
		title = "Complication Risk Alert"
		message = fmt.Sprintf(
			"Elevated probability of complications (%.0f%%), overall risk %.0f%%. "+
				"Prepare for complication management.",
			value(profile.ComplicationProbability), overall)
	default:
		title = "Alert: " + rule.Name
		message = fmt.Sprintf("A risk factor requiring attention was detected. Overall risk: %.0f%%.", overall)
	}
	return title, message
}

// Recommendations lists the actions for an alert. The slice is never nil.
func Recommendations(rule *models.AlertRule, profile *models.RiskProfile) []string {
	name := scoring.Fold(rule.Name)
	recs := make([]string, 0)

	if containsAny(name, airwayKeywords) {
		recs = append(recs, airwayRecommendations...)
	}
	if containsAny(name, cardiovascularKeywords) {
		recs = append(recs, cardiovascularRecommendations...)
	}
	if profile.Overall() >= highRiskOverall {
		recs = append(recs, highRiskRecommendations...)
	}
	return recs
}

// Confidence rates how many of the profile's indicators support the alert, in [30,95].
// A component score is an indicator when present and non-zero and contributes above 50;
// the factor set is an indicator when non-empty and contributes from three factors.
func Confidence(profile *models.RiskProfile) float64 {
	var applicable, contributing int

	for _, score := range []*float64{
		profile.AirwayRiskScore,
		profile.CardiovascularRiskScore,
		profile.RespiratoryRiskScore,
	} {
		if score == nil || *score == 0 {
			continue
		}
		applicable++
		if *score > 50 {
			contributing++
		}
	}

	if n := len(profile.RiskFactorIDs); n > 0 {
		applicable++
		if n >= 3 {
			contributing++
		}
	}

	if applicable == 0 {
		return defaultConfidence
	}

	confidence := float64(contributing) / float64(applicable) * 100
	if confidence < minConfidence {
		return minConfidence
	}
	if confidence > maxConfidence {
		return maxConfidence
	}
	return confidence
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
