package models

import "time"

// RiskFactorCategory groups factors by physiological domain.
type RiskFactorCategory string

const (
	CategoryAirway      RiskFactorCategory = "airway"
	CategoryCardiac     RiskFactorCategory = "cardiac"
	CategoryRespiratory RiskFactorCategory = "respiratory"
	CategoryMetabolic   RiskFactorCategory = "metabolic"
	CategoryGeneral     RiskFactorCategory = "general"
)

// Severity of a risk factor.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// PredicateKind discriminates Applicability variants.
type PredicateKind string

const (
	// PredicateCompare compares one assessment field against Value.
	PredicateCompare PredicateKind = "compare"
	// PredicateMentions matches when any of Terms appears in the comorbidity text.
	PredicateMentions PredicateKind = "mentions"
	// PredicateAll matches when every predicate in Of matches.
	PredicateAll PredicateKind = "all"
	// PredicateAny matches when at least one predicate in Of matches.
	PredicateAny PredicateKind = "any"
)

// Applicability decides whether a risk factor applies to an assessment.
type Applicability struct {
	Kind     PredicateKind   `json:"kind" yaml:"kind"`
	Field    string          `json:"field,omitempty" yaml:"field,omitempty"`
	Operator Operator        `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    float64         `json:"value,omitempty" yaml:"value,omitempty"`
	Terms    []string        `json:"terms,omitempty" yaml:"terms,omitempty"`
	Of       []Applicability `json:"of,omitempty" yaml:"of,omitempty"`
}

// RiskFactor is catalog reference data. A factor with nil Applicability never applies.
type RiskFactor struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Category      RiskFactorCategory `json:"category"`
	Severity      Severity           `json:"severity"`
	Active        bool               `json:"active"`
	Applicability *Applicability     `json:"applicability,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}
