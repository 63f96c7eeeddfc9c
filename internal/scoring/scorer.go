package scoring

import (
	"strconv"
	"strings"

	"github.com/MagicKrazik/ALPHA/internal/models"

	"go.uber.org/zap"
)

// Result is the output of one full scoring pass.
type Result struct {
	Airway                     float64
	Cardiovascular             float64
	Respiratory                float64
	Overall                    float64
	DifficultAirwayProbability float64
	ComplicationProbability    float64
}

// Scorer maps a pre-assessment to bounded risk scores. It holds no mutable state.
type Scorer struct {
	cfg    Config
	logger *zap.Logger
}

// NewScorer creates a scorer over a private copy of cfg.
func NewScorer(cfg Config, logger *zap.Logger) *Scorer {
	return &Scorer{
		cfg:    cfg.clone(),
		logger: logger,
	}
}

// Version is the calculation version of the scorer's tables.
func (s *Scorer) Version() string {
	return s.cfg.Version
}

// Score runs every scorer and combines the components.
func (s *Scorer) Score(a *models.PreAssessment) Result {
	r := Result{
		Airway:                     s.AirwayScore(a),
		Cardiovascular:             s.CardiovascularScore(a),
		Respiratory:                s.RespiratoryScore(a),
		DifficultAirwayProbability: s.DifficultAirwayProbability(a),
		ComplicationProbability:    s.ComplicationProbability(a),
	}
	r.Overall = s.Overall(r.Airway, r.Cardiovascular, r.Respiratory)
	return r
}

// Overall is the weighted combination of the three component scores.
func (s *Scorer) Overall(airway, cardiovascular, respiratory float64) float64 {
	w := s.cfg.Weights
	return airway*w.Airway + cardiovascular*w.Cardiovascular + respiratory*w.Respiratory
}

// AirwayScore rates airway management difficulty (0-100).
func (s *Scorer) AirwayScore(a *models.PreAssessment) float64 {
	t := s.cfg.Airway
	var score float64

	if a.Mallampati != nil {
		score += t.Mallampati[*a.Mallampati]
	}
	if a.BMI != nil {
		score += t.BMI.points(*a.BMI)
	}
	if a.PatilAldrete != nil {
		score += t.PatilAldrete[*a.PatilAldrete]
	}
	if a.InterIncisorCm != nil {
		score += t.InterIncisor.points(*a.InterIncisorCm)
	}
	if a.ThyromentalCm != nil {
		score += t.Thyromental.points(*a.ThyromentalCm)
	}
	if a.PriorDifficulty {
		score += t.PriorDifficulty
	}
	if a.SwallowingProblems {
		score += t.Swallowing
	}
	if a.LaryngealStridor {
		score += t.Stridor
	}
	if a.StopBang != nil {
		score += t.StopBang.points(float64(*a.StopBang))
	}
	if a.TrachealDeviationCm != nil && *a.TrachealDeviationCm > t.DeviationAboveCm {
		score += t.TrachealDeviation
	}

	return clamp(score)
}

// CardiovascularScore rates cardiovascular risk (0-100) using the patient's age.
func (s *Scorer) CardiovascularScore(a *models.PreAssessment) float64 {
	t := s.cfg.Cardiovascular
	var score float64

	if a.ASAClass != nil {
		score += t.ASA[*a.ASAClass]
	}
	if a.Age != nil {
		score += t.Age.points(float64(*a.Age))
	}
	if a.HeartRate != nil && (*a.HeartRate > t.HeartRateHigh || *a.HeartRate < t.HeartRateLow) {
		score += t.HeartRate
	}

	if systolic, diastolic, ok := ParseBloodPressure(a.BloodPressure); ok {
		for _, tier := range t.BloodPressure {
			if systolic > tier.SystolicAbove || diastolic > tier.DiastolicAbove {
				score += tier.Points
				break
			}
		}
	} else if strings.TrimSpace(a.BloodPressure) != "" {
		s.logger.Debug("Ignoring unparsable blood pressure",
			zap.String("case_id", a.CaseID),
			zap.String("blood_pressure", a.BloodPressure),
		)
	}

	if mentionsAny(a.Comorbidities, t.Terms) {
		score += t.Comorbidity
	}

	return clamp(score)
}

// RespiratoryScore rates respiratory risk (0-100).
func (s *Scorer) RespiratoryScore(a *models.PreAssessment) float64 {
	t := s.cfg.Respiratory
	var score float64

	if a.SpO2RoomAir != nil {
		score += t.SpO2.points(float64(*a.SpO2RoomAir))
	}
	if a.Smoking {
		score += t.Smoking
	}
	if a.BMI != nil {
		score += t.BMI.points(*a.BMI)
	}
	if a.StopBang != nil {
		score += t.StopBang.points(float64(*a.StopBang))
	}
	if mentionsAny(a.Comorbidities, t.Terms) {
		score += t.Comorbidity
	}
	if a.Glasgow != nil {
		score += t.Glasgow.points(float64(*a.Glasgow))
	}

	return clamp(score)
}

// DifficultAirwayProbability estimates the chance of a difficult airway (0-100%).
func (s *Scorer) DifficultAirwayProbability(a *models.PreAssessment) float64 {
	t := s.cfg.DifficultAirway
	var p float64

	if a.Mallampati != nil {
		p += t.Mallampati[*a.Mallampati]
	}
	if a.InterIncisorCm != nil {
		p += t.InterIncisor.points(*a.InterIncisorCm)
	}
	if a.ThyromentalCm != nil {
		p += t.Thyromental.points(*a.ThyromentalCm)
	}
	if a.PriorDifficulty {
		p += t.PriorDifficulty
	}
	if a.BMI != nil {
		p += t.BMI.points(*a.BMI)
	}
	if a.Macocha != nil {
		p += t.Macocha.points(float64(*a.Macocha))
	}

	return clamp(p)
}

// ComplicationProbability estimates the chance of a perioperative complication (0-100%).
func (s *Scorer) ComplicationProbability(a *models.PreAssessment) float64 {
	t := s.cfg.Complication
	var p float64

	if a.ASAClass != nil {
		p += t.ASA[*a.ASAClass]
	}
	if a.Age != nil {
		p += t.Age.points(float64(*a.Age))
	}
	if a.FastingHours != nil {
		p += t.Fasting.points(float64(*a.FastingHours))
	}
	if ComorbidityCount(a.Comorbidities) > t.ComorbidityCountAbove {
		p += t.Comorbidities
	}
	if a.Glasgow != nil {
		p += t.Glasgow.points(float64(*a.Glasgow))
	}
	if a.SpO2RoomAir != nil {
		p += t.SpO2.points(float64(*a.SpO2RoomAir))
	}

	return clamp(p)
}

// ParseBloodPressure parses "systolic/diastolic". ok is false for anything else.
func ParseBloodPressure(text string) (systolic, diastolic int, ok bool) {
	parts := strings.Split(strings.TrimSpace(text), "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	sys, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	dia, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return sys, dia, true
}

// ComorbidityCount counts the non-blank comma-separated entries.
func ComorbidityCount(text string) int {
	n := 0
	for _, item := range strings.Split(text, ",") {
		if strings.TrimSpace(item) != "" {
			n++
		}
	}
	return n
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
