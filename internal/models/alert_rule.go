package models

import (
	"encoding/json"
	"time"
)

// RuleType selects the predicate used to evaluate an AlertRule.
type RuleType string

const (
	RuleTypeThreshold    RuleType = "threshold"
	RuleTypeCombination  RuleType = "combination"
	RuleTypeTrend        RuleType = "trend"
	RuleTypeMLPrediction RuleType = "ml_prediction"
)

// AlertRule is administrator-edited configuration evaluated against risk profiles.
type AlertRule struct {
	ID            string          `json:"id"`
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=2000"`
	RuleType      RuleType        `json:"rule_type" validate:"required,oneof=threshold combination trend ml_prediction"`
	RuleConfig    json.RawMessage `json:"rule_config" validate:"required"`
	RiskFactorIDs []string        `json:"risk_factor_ids"`
	Priority      int             `json:"priority" validate:"min=1,max=5"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
