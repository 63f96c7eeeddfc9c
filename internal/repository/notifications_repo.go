package repository

import (
	"context"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// NotificationsRepository stores per-recipient alert deliveries.
type NotificationsRepository interface {
	// CreateNotification inserts n unless a row exists for the same (alert, recipient, channel).
	CreateNotification(ctx context.Context, n *models.AlertNotification) (created bool, err error)

	// GetNotification returns one notification or models.ErrNotFound.
	GetNotification(ctx context.Context, notificationID string) (*models.AlertNotification, error)

	// MarkSent moves a pending notification to sent; any other state is models.ErrConflict.
	MarkSent(ctx context.Context, notificationID string, sentAt time.Time) error

	// MarkFailed moves a pending notification to failed with the error text.
	MarkFailed(ctx context.Context, notificationID, errorMessage string) error
}
