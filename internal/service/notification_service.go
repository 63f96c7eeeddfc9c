package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/events"
	"github.com/MagicKrazik/ALPHA/internal/metrics"
	"github.com/MagicKrazik/ALPHA/internal/models"
	"github.com/MagicKrazik/ALPHA/internal/notifier"
	"github.com/MagicKrazik/ALPHA/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sender delivers one notification over its channel.
type Sender interface {
	Send(ctx context.Context, msg notifier.Message) error
}

// NotificationService fans alerts out to the care team and delivers queued notifications.
type NotificationService struct {
	cases         repository.CasesRepository
	alerts        repository.RiskAlertsRepository
	notifications repository.NotificationsRepository
	publisher     events.Publisher
	senders       map[models.NotificationChannel]Sender
	pushEnabled   bool
	logger        *zap.Logger
	now           func() time.Time
	newID         func() string
}

// NewNotificationService creates the service. senders maps each asynchronous channel to its transport.
func NewNotificationService(
	cases repository.CasesRepository,
	alerts repository.RiskAlertsRepository,
	notifications repository.NotificationsRepository,
	publisher events.Publisher,
	senders map[models.NotificationChannel]Sender,
	pushEnabled bool,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		cases:         cases,
		alerts:        alerts,
		notifications: notifications,
		publisher:     publisher,
		senders:       senders,
		pushEnabled:   pushEnabled,
		logger:        logger,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Recipients returns the responsible clinician followed by the secondary clinicians,
// deduplicated by id with first-seen order kept.
func Recipients(tc *models.TreatmentCase) []models.Clinician {
	seen := make(map[string]bool)
	out := make([]models.Clinician, 0, 1+len(tc.SecondaryClinicians))
	for _, c := range append([]models.Clinician{tc.ResponsibleClinician}, tc.SecondaryClinicians...) {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

// Dispatch records the notifications of a newly created alert. Every recipient gets an
// in_app notification marked sent; critical alerts also queue an email (and a push when
// enabled) per recipient for the delivery worker. Rows that already exist are not re-queued.
func (s *NotificationService) Dispatch(ctx context.Context, alertID string) ([]*models.AlertNotification, error) {
	alert, err := s.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert: %w", err)
	}
	tc, err := s.cases.GetCase(ctx, alert.CaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	channels := []models.NotificationChannel{}
	if alert.AlertType == models.AlertTypeCritical {
		channels = append(channels, models.ChannelEmail)
		if s.pushEnabled {
			channels = append(channels, models.ChannelPush)
		}
	}

	created := []*models.AlertNotification{}
	for _, recipient := range Recipients(tc) {
		now := s.now()
		inApp := &models.AlertNotification{
			ID:          s.newID(),
			AlertID:     alert.ID,
			RecipientID: recipient.ID,
			Channel:     models.ChannelInApp,
			Status:      models.NotificationSent,
			CreatedAt:   now,
			SentAt:      &now,
		}
		ok, err := s.notifications.CreateNotification(ctx, inApp)
		if err != nil {
			return created, fmt.Errorf("failed to create in_app notification: %w", err)
		}
		if ok {
			created = append(created, inApp)
			metrics.Notifications.WithLabelValues(string(models.ChannelInApp), string(models.NotificationSent)).Inc()
		}

		for _, channel := range channels {
			n := &models.AlertNotification{
				ID:          s.newID(),
				AlertID:     alert.ID,
				RecipientID: recipient.ID,
				Channel:     channel,
				Status:      models.NotificationPending,
				CreatedAt:   now,
			}
			ok, err := s.notifications.CreateNotification(ctx, n)
			if err != nil {
				return created, fmt.Errorf("failed to create %s notification: %w", channel, err)
			}
			if !ok {
				continue
			}
			created = append(created, n)
			metrics.Notifications.WithLabelValues(string(channel), string(models.NotificationPending)).Inc()

			event := models.DeliveryRequestedEvent{NotificationID: n.ID, AlertID: alert.ID, Channel: channel}
			if err := s.publisher.Publish(ctx, events.StreamDeliveries, event); err != nil {
				s.logger.Error("Failed to queue notification delivery",
					zap.String("notification_id", n.ID),
					zap.Error(err),
				)
			}
		}
	}

	s.logger.Info("Alert notifications dispatched",
		zap.String("alert_id", alert.ID),
		zap.String("case_id", alert.CaseID),
		zap.String("alert_type", string(alert.AlertType)),
		zap.Int("created", len(created)),
	)
	return created, nil
}

// Deliver sends one pending notification and records the outcome on its row.
// Transport failures mark the row failed and are not returned.
func (s *NotificationService) Deliver(ctx context.Context, notificationID string) error {
	n, err := s.notifications.GetNotification(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("failed to load notification: %w", err)
	}
	if n.Status != models.NotificationPending {
		s.logger.Debug("Notification already processed",
			zap.String("notification_id", n.ID),
			zap.String("status", string(n.Status)),
		)
		return nil
	}

	msg, err := s.buildMessage(ctx, n)
	if err == nil {
		sender, ok := s.senders[n.Channel]
		if !ok {
			err = fmt.Errorf("no transport for channel %s", n.Channel)
		} else {
			err = sender.Send(ctx, msg)
		}
	}

	if err != nil {
		metrics.Notifications.WithLabelValues(string(n.Channel), string(models.NotificationFailed)).Inc()
		s.logger.Warn("Notification delivery failed",
			zap.String("notification_id", n.ID),
			zap.String("channel", string(n.Channel)),
			zap.Error(err),
		)
		if markErr := s.notifications.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
			if errors.Is(markErr, models.ErrConflict) {
				s.logger.Info("Notification settled by another delivery",
					zap.String("notification_id", n.ID),
				)
				return nil
			}
			return fmt.Errorf("failed to mark notification failed: %w", markErr)
		}
		return nil
	}

	if err := s.notifications.MarkSent(ctx, n.ID, s.now()); err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("Notification settled by another delivery",
				zap.String("notification_id", n.ID),
			)
			return nil
		}
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	metrics.Notifications.WithLabelValues(string(n.Channel), string(models.NotificationSent)).Inc()
	s.logger.Info("Notification delivered",
		zap.String("notification_id", n.ID),
		zap.String("channel", string(n.Channel)),
		zap.String("recipient_id", n.RecipientID),
	)
	return nil
}

func (s *NotificationService) buildMessage(ctx context.Context, n *models.AlertNotification) (notifier.Message, error) {
	alert, err := s.alerts.GetAlert(ctx, n.AlertID)
	if err != nil {
		return notifier.Message{}, fmt.Errorf("failed to load alert: %w", err)
	}
	tc, err := s.cases.GetCase(ctx, alert.CaseID)
	if err != nil {
		return notifier.Message{}, fmt.Errorf("failed to load case: %w", err)
	}
	for _, c := range Recipients(tc) {
		if c.ID == n.RecipientID {
			return notifier.Message{Notification: n, Recipient: c, Case: tc, Alert: alert}, nil
		}
	}
	return notifier.Message{}, fmt.Errorf("clinician %s is not on the care team of case %s", n.RecipientID, tc.ID)
}
