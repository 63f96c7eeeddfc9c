package rules

import (
	"encoding/json"
	"fmt"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// Evaluate reports whether rule triggers for profile.
//
// A missing field value evaluates to false without error. Configuration problems
// (undecodable config, unknown field or operator) evaluate to false and return an
// error so the caller can log and skip the rule. trend and ml_prediction rules never trigger.
func Evaluate(rule *models.AlertRule, profile *models.RiskProfile) (bool, error) {
	if rule == nil || profile == nil {
		return false, nil
	}

	switch rule.RuleType {
	case models.RuleTypeThreshold:
		return evaluateThreshold(rule.RuleConfig, profile)
	case models.RuleTypeCombination:
		return evaluateCombination(rule.RuleConfig, profile)
	case models.RuleTypeTrend, models.RuleTypeMLPrediction:
		return false, nil
	}
	return false, fmt.Errorf("%w: unknown rule type %q", ErrInvalidConfig, string(rule.RuleType))
}

// evaluateThreshold decodes without struct validation; each problem surfaces as its own error.
func evaluateThreshold(raw json.RawMessage, profile *models.RiskProfile) (bool, error) {
	var cfg ThresholdConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return false, fmt.Errorf("%w: threshold config: %v", ErrInvalidConfig, err)
	}
	if cfg.Threshold == nil {
		return false, fmt.Errorf("%w: threshold missing", ErrInvalidConfig)
	}
	return compare(profile, cfg.Field, cfg.Operator, *cfg.Threshold)
}

func evaluateCombination(raw json.RawMessage, profile *models.RiskProfile) (bool, error) {
	var cfg CombinationConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return false, fmt.Errorf("%w: combination config: %v", ErrInvalidConfig, err)
	}
	if len(cfg.Conditions) == 0 {
		return false, fmt.Errorf("%w: combination without conditions", ErrInvalidConfig)
	}

	logic := cfg.Logic
	if logic == "" {
		logic = LogicAnd
	}
	if logic != LogicAnd && logic != LogicOr {
		return false, fmt.Errorf("%w: unknown logic %q", ErrInvalidConfig, string(logic))
	}

	for _, c := range cfg.Conditions {
		if c.Value == nil {
			return false, fmt.Errorf("%w: condition on %s has no value", ErrInvalidConfig, c.Field)
		}
		matched, err := compare(profile, c.Field, c.Operator, *c.Value)
		if err != nil {
			return false, err
		}
		if logic == LogicAnd && !matched {
			return false, nil
		}
		if logic == LogicOr && matched {
			return true, nil
		}
	}
	return logic == LogicAnd, nil
}

func compare(profile *models.RiskProfile, field string, op models.Operator, threshold float64) (bool, error) {
	if !IsProfileField(field) {
		return false, fmt.Errorf("%w: unknown field %q", ErrInvalidConfig, field)
	}
	if !op.Valid() {
		return false, fmt.Errorf("%w: field %s: %w", ErrInvalidConfig, field, models.ErrUnknownOperator)
	}
	v, ok := FieldValue(profile, field)
	if !ok {
		return false, nil
	}
	return op.Compare(v, threshold)
}
