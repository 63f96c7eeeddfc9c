package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MagicKrazik/ALPHA/internal/models"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned when a rule or its rule_config fails validation.
var ErrInvalidConfig = errors.New("invalid alert rule configuration")

// Logic combines the conditions of a combination rule.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// ThresholdConfig is the rule_config of a threshold rule.
type ThresholdConfig struct {
	Field     string          `json:"field" validate:"required,profilefield"`
	Operator  models.Operator `json:"operator" validate:"required,operator"`
	Threshold *float64        `json:"threshold" validate:"required"`
}

// Condition is one clause of a combination rule.
type Condition struct {
	Field    string          `json:"field" validate:"required,profilefield"`
	Operator models.Operator `json:"operator" validate:"required,operator"`
	Value    *float64        `json:"value" validate:"required"`
}

// CombinationConfig is the rule_config of a combination rule. Logic defaults to AND.
type CombinationConfig struct {
	Conditions []Condition `json:"conditions" validate:"required,min=1,dive"`
	Logic      Logic       `json:"logic" validate:"omitempty,oneof=AND OR"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("profilefield", func(fl validator.FieldLevel) bool {
		return IsProfileField(fl.Field().String())
	})
	_ = validate.RegisterValidation("operator", func(fl validator.FieldLevel) bool {
		return models.Operator(fl.Field().String()).Valid()
	})
}

// ParseThreshold decodes and validates a threshold rule_config.
func ParseThreshold(raw json.RawMessage) (*ThresholdConfig, error) {
	var cfg ThresholdConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: threshold config: %v", ErrInvalidConfig, err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: threshold config: %s", ErrInvalidConfig, describe(err))
	}
	return &cfg, nil
}

// ParseCombination decodes and validates a combination rule_config.
func ParseCombination(raw json.RawMessage) (*CombinationConfig, error) {
	var cfg CombinationConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: combination config: %v", ErrInvalidConfig, err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: combination config: %s", ErrInvalidConfig, describe(err))
	}
	if cfg.Logic == "" {
		cfg.Logic = LogicAnd
	}
	return &cfg, nil
}

// ValidateRule checks the rule's own fields and the rule_config shape for its type.
func ValidateRule(rule *models.AlertRule) error {
	if rule == nil {
		return fmt.Errorf("%w: nil rule", ErrInvalidConfig)
	}
	if err := validate.Struct(rule); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, describe(err))
	}

	switch rule.RuleType {
	case models.RuleTypeThreshold:
		_, err := ParseThreshold(rule.RuleConfig)
		return err
	case models.RuleTypeCombination:
		_, err := ParseCombination(rule.RuleConfig)
		return err
	case models.RuleTypeTrend, models.RuleTypeMLPrediction:
		var obj map[string]interface{}
		if err := json.Unmarshal(rule.RuleConfig, &obj); err != nil || obj == nil {
			return fmt.Errorf("%w: %s config must be a JSON object", ErrInvalidConfig, rule.RuleType)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown rule type %q", ErrInvalidConfig, string(rule.RuleType))
}

// describe flattens validator errors into "field: tag" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
