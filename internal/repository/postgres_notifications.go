package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// PostgresNotificationsRepository implements NotificationsRepository.
type PostgresNotificationsRepository struct {
	db *sql.DB
}

// NewPostgresNotificationsRepository creates the repository.
func NewPostgresNotificationsRepository(db *sql.DB) *PostgresNotificationsRepository {
	return &PostgresNotificationsRepository{db: db}
}

var _ NotificationsRepository = (*PostgresNotificationsRepository)(nil)

// CreateNotification implements NotificationsRepository.
func (r *PostgresNotificationsRepository) CreateNotification(ctx context.Context, n *models.AlertNotification) (bool, error) {
	if n == nil || n.ID == "" {
		return false, fmt.Errorf("notification id is required")
	}

	query := `
		INSERT INTO alert_notifications (
			id, alert_id, recipient_id, channel, status, created_at, sent_at, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (alert_id, recipient_id, channel) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.AlertID,
		n.RecipientID,
		string(n.Channel),
		string(n.Status),
		n.CreatedAt,
		timeArg(n.SentAt),
		stringArg(n.ErrorMessage),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create notification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

// GetNotification implements NotificationsRepository.
func (r *PostgresNotificationsRepository) GetNotification(ctx context.Context, notificationID string) (*models.AlertNotification, error) {
	if notificationID == "" {
		return nil, fmt.Errorf("notification_id is required")
	}

	query := `
		SELECT
			id::text,
			alert_id::text,
			recipient_id::text,
			channel,
			status,
			created_at,
			sent_at,
			error_message
		FROM alert_notifications
		WHERE id = $1
	`

	var n models.AlertNotification
	var channel, status string
	var sentAt sql.NullTime
	var errorMessage sql.NullString
	err := r.db.QueryRowContext(ctx, query, notificationID).Scan(
		&n.ID,
		&n.AlertID,
		&n.RecipientID,
		&channel,
		&status,
		&n.CreatedAt,
		&sentAt,
		&errorMessage,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification %s: %w", notificationID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	n.Channel = models.NotificationChannel(channel)
	n.Status = models.NotificationStatus(status)
	n.SentAt = nullTime(sentAt)
	n.ErrorMessage = nullString(errorMessage)
	return &n, nil
}

// MarkSent implements NotificationsRepository. Only a pending row changes; any other
// state yields models.ErrConflict.
func (r *PostgresNotificationsRepository) MarkSent(ctx context.Context, notificationID string, sentAt time.Time) error {
	return r.setStatus(ctx, `
		UPDATE alert_notifications SET status = 'sent', sent_at = $2, error_message = NULL
		WHERE id = $1 AND status = 'pending'
	`, notificationID, sentAt)
}

// MarkFailed implements NotificationsRepository. Only a pending row changes.
func (r *PostgresNotificationsRepository) MarkFailed(ctx context.Context, notificationID, errorMessage string) error {
	return r.setStatus(ctx, `
		UPDATE alert_notifications SET status = 'failed', error_message = $2
		WHERE id = $1 AND status = 'pending'
	`, notificationID, errorMessage)
}

func (r *PostgresNotificationsRepository) setStatus(ctx context.Context, query, notificationID string, arg interface{}) error {
	if notificationID == "" {
		return fmt.Errorf("notification_id is required")
	}
	result, err := r.db.ExecContext(ctx, query, notificationID, arg)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("notification %s is not pending: %w", notificationID, models.ErrConflict)
	}
	return nil
}
