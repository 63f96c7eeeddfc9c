package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/events"
	"github.com/MagicKrazik/ALPHA/internal/metrics"
	"github.com/MagicKrazik/ALPHA/internal/models"
	"github.com/MagicKrazik/ALPHA/internal/repository"
	"github.com/MagicKrazik/ALPHA/internal/scoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileService builds and reads case risk profiles.
type ProfileService struct {
	cases     repository.CasesRepository
	factors   repository.RiskFactorsRepository
	profiles  repository.RiskProfilesRepository
	scorer    *scoring.Scorer
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewProfileService creates the profile service.
func NewProfileService(
	cases repository.CasesRepository,
	factors repository.RiskFactorsRepository,
	profiles repository.RiskProfilesRepository,
	scorer *scoring.Scorer,
	publisher events.Publisher,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		cases:     cases,
		factors:   factors,
		profiles:  profiles,
		scorer:    scorer,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Rebuild recomputes the case's profile from its pre-assessment, persists it and
// requests a rule pass. It returns (nil, nil) when the case has no pre-assessment yet.
func (s *ProfileService) Rebuild(ctx context.Context, caseID string) (*models.RiskProfile, error) {
	if caseID == "" {
		return nil, fmt.Errorf("case_id is required")
	}

	assessment, err := s.cases.GetPreAssessment(ctx, caseID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			metrics.ProfilesBuilt.WithLabelValues("not_ready").Inc()
			s.logger.Info("No pre-assessment yet, risk profile not built",
				zap.String("case_id", caseID),
			)
			return nil, nil
		}
		metrics.ProfilesBuilt.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load pre-assessment: %w", err)
	}

	factors, err := s.factors.ListRiskFactors(ctx, true)
	if err != nil {
		metrics.ProfilesBuilt.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load risk factors: %w", err)
	}

	scores := s.scorer.Score(assessment)
	// An existing profile keeps its id; the store ignores this one on conflict.
	profile := &models.RiskProfile{
		ID:                         s.newID(),
		CaseID:                     caseID,
		AirwayRiskScore:            floatPtr(scores.Airway),
		CardiovascularRiskScore:    floatPtr(scores.Cardiovascular),
		RespiratoryRiskScore:       floatPtr(scores.Respiratory),
		OverallRiskScore:           floatPtr(scores.Overall),
		DifficultAirwayProbability: floatPtr(scores.DifficultAirwayProbability),
		ComplicationProbability:    floatPtr(scores.ComplicationProbability),
		RiskFactorIDs:              scoring.ApplicableFactors(factors, assessment),
		CalculatedAt:               s.now(),
		CalculationVersion:         s.scorer.Version(),
	}

	if err := s.profiles.Upsert(ctx, profile); err != nil {
		metrics.ProfilesBuilt.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to save risk profile: %w", err)
	}

	metrics.ProfilesBuilt.WithLabelValues("built").Inc()
	metrics.OverallRiskScore.Observe(scores.Overall)
	s.logger.Info("Risk profile built",
		zap.String("case_id", caseID),
		zap.String("profile_id", profile.ID),
		zap.Float64("overall_risk_score", scores.Overall),
		zap.Int("risk_factor_count", len(profile.RiskFactorIDs)),
	)

	event := models.ProfileUpdatedEvent{
		CaseID:             caseID,
		ProfileID:          profile.ID,
		CalculationVersion: profile.CalculationVersion,
	}
	if err := s.publisher.Publish(ctx, events.StreamProfiles, event); err != nil {
		// The profile is saved; the next assessment write or the weekly refresh re-runs the rules.
		s.logger.Error("Failed to publish profile.updated",
			zap.String("case_id", caseID),
			zap.Error(err),
		)
	}

	return profile, nil
}

// GetProfile returns the stored profile of a case or models.ErrNotFound.
func (s *ProfileService) GetProfile(ctx context.Context, caseID string) (*models.RiskProfile, error) {
	if caseID == "" {
		return nil, fmt.Errorf("case_id is required")
	}
	profile, err := s.profiles.GetByCaseID(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get risk profile: %w", err)
	}
	return profile, nil
}

// ListRiskFactors returns the catalog.
func (s *ProfileService) ListRiskFactors(ctx context.Context, activeOnly bool) ([]*models.RiskFactor, error) {
	factors, err := s.factors.ListRiskFactors(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list risk factors: %w", err)
	}
	return factors, nil
}

func floatPtr(v float64) *float64 {
	return &v
}
