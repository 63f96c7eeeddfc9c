package repository

import (
	"context"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// RiskProfilesRepository stores one risk profile per case.
type RiskProfilesRepository interface {
	// GetByCaseID returns the profile with its sorted factor ids, or models.ErrNotFound.
	GetByCaseID(ctx context.Context, caseID string) (*models.RiskProfile, error)

	// Upsert inserts the case's profile or updates it in place, and replaces its factor set,
	// in one transaction. On return profile.ID and CreatedAt hold the stored values.
	Upsert(ctx context.Context, profile *models.RiskProfile) error
}
