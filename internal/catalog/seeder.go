package catalog

import (
	"context"
	"fmt"

	"github.com/MagicKrazik/ALPHA/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SeedResult counts what a seed run changed.
type SeedResult struct {
	FactorsCreated int
	FactorsUpdated int
	RulesCreated   int
	RulesSkipped   int
}

// Seeder writes a catalog into the repositories. Running it twice is harmless:
// factors are upserted by name, rules are inserted only when no rule has the same name.
type Seeder struct {
	factors repository.RiskFactorsRepository
	rules   repository.AlertRulesRepository
	logger  *zap.Logger
	newID   func() string
}

func NewSeeder(factors repository.RiskFactorsRepository, rules repository.AlertRulesRepository, logger *zap.Logger) *Seeder {
	return &Seeder{
		factors: factors,
		rules:   rules,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// Seed writes cat.
func (s *Seeder) Seed(ctx context.Context, cat *Catalog) (*SeedResult, error) {
	result := &SeedResult{}

	for _, entry := range cat.RiskFactors {
		factor := entry.toFactor()
		factor.ID = s.newID()

		created, err := s.factors.UpsertRiskFactorByName(ctx, factor)
		if err != nil {
			return result, fmt.Errorf("failed to seed risk factor %q: %w", entry.Name, err)
		}
		if created {
			result.FactorsCreated++
			s.logger.Info("Risk factor created", zap.String("name", entry.Name))
		} else {
			result.FactorsUpdated++
			s.logger.Debug("Risk factor updated", zap.String("name", entry.Name))
		}
	}

	for _, entry := range cat.AlertRules {
		rule, err := entry.toRule()
		if err != nil {
			return result, fmt.Errorf("failed to build alert rule %q: %w", entry.Name, err)
		}
		rule.ID = s.newID()

		created, err := s.rules.CreateAlertRuleIfAbsent(ctx, rule)
		if err != nil {
			return result, fmt.Errorf("failed to seed alert rule %q: %w", entry.Name, err)
		}
		if created {
			result.RulesCreated++
			s.logger.Info("Alert rule created", zap.String("name", entry.Name))
		} else {
			result.RulesSkipped++
			s.logger.Info("Alert rule already exists", zap.String("name", entry.Name))
		}
	}

	return result, nil
}
