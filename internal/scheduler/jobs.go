package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/events"
	"github.com/MagicKrazik/ALPHA/internal/models"
	"github.com/MagicKrazik/ALPHA/internal/repository"

	"go.uber.org/zap"
)

// Job names.
const (
	JobCleanupResolved = "cleanup_resolved_alerts"
	JobRefreshProfiles = "refresh_profiles"
)

// Purger deletes resolved alerts older than a retention window.
type Purger interface {
	PurgeResolved(ctx context.Context, retention time.Duration) (int64, error)
}

// CleanupResolvedAlerts purges resolved alerts older than retention.
func CleanupResolvedAlerts(purger Purger, retention time.Duration) JobFunc {
	return func(ctx context.Context) error {
		_, err := purger.PurgeResolved(ctx, retention)
		return err
	}
}

// RefreshProfiles republishes assessment.saved for every active case with a pre-assessment,
// so profiles and alerts follow catalog and rule changes.
func RefreshProfiles(cases repository.CasesRepository, publisher events.Publisher, logger *zap.Logger) JobFunc {
	return func(ctx context.Context) error {
		ids, err := cases.ListActiveAssessedCaseIDs(ctx)
		if err != nil {
			return fmt.Errorf("failed to list cases: %w", err)
		}

		failed := 0
		for _, id := range ids {
			if err := publisher.Publish(ctx, events.StreamAssessments, models.AssessmentSavedEvent{CaseID: id}); err != nil {
				failed++
				logger.Error("Failed to queue profile refresh", zap.String("case_id", id), zap.Error(err))
			}
		}

		logger.Info("Profile refresh queued",
			zap.Int("cases", len(ids)),
			zap.Int("failed", failed),
		)
		if failed > 0 {
			return fmt.Errorf("%d of %d refreshes could not be queued", failed, len(ids))
		}
		return nil
	}
}
