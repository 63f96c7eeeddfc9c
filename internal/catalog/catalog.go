// Package catalog loads the risk factor catalog and the initial alert rules from YAML
// and seeds them into the repositories.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/MagicKrazik/ALPHA/internal/models"
	"github.com/MagicKrazik/ALPHA/internal/rules"
	"github.com/MagicKrazik/ALPHA/internal/scoring"

	"gopkg.in/yaml.v3"
)

// MaxFileSize bounds catalog files read from disk.
const MaxFileSize = 1024 * 1024

//go:embed seed.yaml
var defaultCatalogYAML []byte

// ErrInvalidCatalog is returned when a catalog file cannot be parsed or fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// FactorEntry is one risk factor in the catalog file.
type FactorEntry struct {
	Name        string                `yaml:"name"`
	Description string                `yaml:"description"`
	Category    string                `yaml:"category"`
	Severity    string                `yaml:"severity"`
	Inactive    bool                  `yaml:"inactive,omitempty"`
	AppliesWhen *models.Applicability `yaml:"applies_when,omitempty"`
}

// RuleEntry is one alert rule in the catalog file.
type RuleEntry struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	RuleType    string                 `yaml:"rule_type"`
	Priority    int                    `yaml:"priority"`
	Inactive    bool                   `yaml:"inactive,omitempty"`
	RuleConfig  map[string]interface{} `yaml:"rule_config"`
}

// Catalog is a parsed and validated catalog file.
type Catalog struct {
	RiskFactors []FactorEntry `yaml:"risk_factors"`
	AlertRules  []RuleEntry   `yaml:"alert_rules"`
}

// Default returns the catalog shipped with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalogYAML)
}

// LoadFile reads and parses a catalog file.
func LoadFile(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalog: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrInvalidCatalog, path, MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog and validates every factor predicate and rule configuration.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	seen := make(map[string]bool, len(cat.RiskFactors))
	for i, f := range cat.RiskFactors {
		if err := validateFactor(f); err != nil {
			return nil, fmt.Errorf("%w: risk_factors[%d] %q: %v", ErrInvalidCatalog, i, f.Name, err)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("%w: duplicate risk factor %q", ErrInvalidCatalog, f.Name)
		}
		seen[f.Name] = true
	}

	seen = make(map[string]bool, len(cat.AlertRules))
	for i, r := range cat.AlertRules {
		rule, err := r.toRule()
		if err == nil {
			err = rules.ValidateRule(rule)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: alert_rules[%d] %q: %v", ErrInvalidCatalog, i, r.Name, err)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("%w: duplicate alert rule %q", ErrInvalidCatalog, r.Name)
		}
		seen[r.Name] = true
	}

	return &cat, nil
}

func validateFactor(f FactorEntry) error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch models.RiskFactorCategory(f.Category) {
	case models.CategoryAirway, models.CategoryCardiac, models.CategoryRespiratory,
		models.CategoryMetabolic, models.CategoryGeneral:
	default:
		return fmt.Errorf("unknown category %q", f.Category)
	}
	switch models.Severity(f.Severity) {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
	default:
		return fmt.Errorf("unknown severity %q", f.Severity)
	}
	return scoring.ValidateApplicability(f.AppliesWhen)
}

// toFactor converts the entry. The caller sets the id; an existing factor keeps its own.
func (f FactorEntry) toFactor() *models.RiskFactor {
	return &models.RiskFactor{
		Name:          f.Name,
		Description:   f.Description,
		Category:      models.RiskFactorCategory(f.Category),
		Severity:      models.Severity(f.Severity),
		Active:        !f.Inactive,
		Applicability: f.AppliesWhen,
	}
}

func (r RuleEntry) toRule() (*models.AlertRule, error) {
	raw, err := json.Marshal(r.RuleConfig)
	if err != nil {
		return nil, fmt.Errorf("rule_config: %w", err)
	}
	return &models.AlertRule{
		Name:          r.Name,
		Description:   r.Description,
		RuleType:      models.RuleType(r.RuleType),
		RuleConfig:    raw,
		RiskFactorIDs: []string{},
		Priority:      r.Priority,
		Active:        !r.Inactive,
	}, nil
}
