package repository

import (
	"context"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// CasesRepository reads the case records owned by record management.
type CasesRepository interface {
	// GetCase returns the case with its responsible and secondary clinicians.
	GetCase(ctx context.Context, caseID string) (*models.TreatmentCase, error)

	// GetPreAssessment returns the case's pre-assessment, or models.ErrNotFound when none was captured yet.
	GetPreAssessment(ctx context.Context, caseID string) (*models.PreAssessment, error)

	// ListActiveAssessedCaseIDs lists active cases that have a pre-assessment.
	ListActiveAssessedCaseIDs(ctx context.Context) ([]string, error)
}
