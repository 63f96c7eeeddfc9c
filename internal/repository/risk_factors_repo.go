package repository

import (
	"context"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// RiskFactorsRepository stores the risk factor catalog.
type RiskFactorsRepository interface {
	// ListRiskFactors returns factors ordered by category then name.
	ListRiskFactors(ctx context.Context, activeOnly bool) ([]*models.RiskFactor, error)

	// UpsertRiskFactorByName inserts the factor, or updates the existing factor with the same name.
	// created reports whether a new row was inserted.
	UpsertRiskFactorByName(ctx context.Context, factor *models.RiskFactor) (created bool, err error)
}
