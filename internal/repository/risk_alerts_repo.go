package repository

import (
	"context"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// RiskAlertsRepository stores alerts and serializes their creation per (case, rule).
type RiskAlertsRepository interface {
	// CreateIfNoActive inserts alert unless the case already has an active alert for the same rule.
	// created is false when the insert was suppressed.
	CreateIfNoActive(ctx context.Context, alert *models.RiskAlert) (created bool, err error)

	// GetAlert returns one alert or models.ErrNotFound.
	GetAlert(ctx context.Context, alertID string) (*models.RiskAlert, error)

	// ListCaseAlerts returns the case's alerts, newest first. An empty status means all.
	ListCaseAlerts(ctx context.Context, caseID string, status models.AlertStatus) ([]*models.RiskAlert, error)

	// UpdateStatus persists alert's status and actor stamps only while the stored status is one of from.
	// updated is false when the stored status no longer allows the change.
	UpdateStatus(ctx context.Context, alert *models.RiskAlert, from []models.AlertStatus) (updated bool, err error)

	// PurgeResolvedBefore deletes resolved alerts whose resolved_at is before cutoff.
	PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
