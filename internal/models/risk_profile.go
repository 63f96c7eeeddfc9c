package models

import "time"

// RiskProfile is the computed risk of one case. Score fields are nil until computed.
type RiskProfile struct {
	ID     string `json:"id"`
	CaseID string `json:"case_id"`

	AirwayRiskScore         *float64 `json:"airway_risk_score"`
	CardiovascularRiskScore *float64 `json:"cardiovascular_risk_score"`
	RespiratoryRiskScore    *float64 `json:"respiratory_risk_score"`
	OverallRiskScore        *float64 `json:"overall_risk_score"`

	DifficultAirwayProbability *float64 `json:"difficult_airway_probability"`
	ComplicationProbability    *float64 `json:"complication_probability"`

	// RiskFactorIDs is sorted.
	RiskFactorIDs []string `json:"risk_factor_ids"`

	CalculatedAt       time.Time `json:"calculated_at"`
	CalculationVersion string    `json:"calculation_version"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Overall returns the overall score, or 0 when absent.
func (p *RiskProfile) Overall() float64 {
	if p == nil || p.OverallRiskScore == nil {
		return 0
	}
	return *p.OverallRiskScore
}
