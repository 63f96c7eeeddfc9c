package service

import (
	"context"
	"fmt"

	rediscommon "github.com/MagicKrazik/ALPHA/internal/common/redis"
	"github.com/MagicKrazik/ALPHA/internal/evaluator"
	"github.com/MagicKrazik/ALPHA/internal/models"

	"go.uber.org/zap"
)

// Pipeline holds the stream handlers of each processing stage.
type Pipeline struct {
	profiles      *ProfileService
	engine        *evaluator.Engine
	alerts        *AlertService
	notifications *NotificationService
	logger        *zap.Logger
}

// NewPipeline creates the stage handlers.
func NewPipeline(
	profiles *ProfileService,
	engine *evaluator.Engine,
	alerts *AlertService,
	notifications *NotificationService,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		profiles:      profiles,
		engine:        engine,
		alerts:        alerts,
		notifications: notifications,
		logger:        logger,
	}
}

// HandleAssessmentSaved rebuilds the case's risk profile.
func (p *Pipeline) HandleAssessmentSaved(ctx context.Context, msg rediscommon.StreamMessage) error {
	var event models.AssessmentSavedEvent
	if err := msg.DecodeJSON(&event); err != nil {
		return err
	}
	if event.CaseID == "" {
		return fmt.Errorf("message %s: case_id is required", msg.ID)
	}
	_, err := p.profiles.Rebuild(ctx, event.CaseID)
	return err
}

// HandleProfileUpdated runs the alert rules against the new profile.
func (p *Pipeline) HandleProfileUpdated(ctx context.Context, msg rediscommon.StreamMessage) error {
	var event models.ProfileUpdatedEvent
	if err := msg.DecodeJSON(&event); err != nil {
		return err
	}
	if event.CaseID == "" {
		return fmt.Errorf("message %s: case_id is required", msg.ID)
	}

	result, err := p.engine.EvaluateCase(ctx, event.CaseID)
	if err != nil {
		return err
	}
	p.logger.Debug("Rules evaluated",
		zap.String("case_id", event.CaseID),
		zap.Int("evaluated", result.Evaluated),
		zap.Int("triggered", result.Triggered),
		zap.Int("created", len(result.Created)),
		zap.Int("deduplicated", result.Deduplicated),
		zap.Int("failed", result.Failed),
	)
	return nil
}

// HandleAlertCreated notifies the care team and refreshes the case's active-alert cache.
func (p *Pipeline) HandleAlertCreated(ctx context.Context, msg rediscommon.StreamMessage) error {
	var event models.AlertCreatedEvent
	if err := msg.DecodeJSON(&event); err != nil {
		return err
	}
	if event.AlertID == "" {
		return fmt.Errorf("message %s: alert_id is required", msg.ID)
	}

	p.alerts.RefreshActiveAlerts(ctx, event.CaseID)
	_, err := p.notifications.Dispatch(ctx, event.AlertID)
	return err
}

// HandleDeliveryRequested sends one queued notification.
func (p *Pipeline) HandleDeliveryRequested(ctx context.Context, msg rediscommon.StreamMessage) error {
	var event models.DeliveryRequestedEvent
	if err := msg.DecodeJSON(&event); err != nil {
		return err
	}
	if event.NotificationID == "" {
		return fmt.Errorf("message %s: notification_id is required", msg.ID)
	}
	return p.notifications.Deliver(ctx, event.NotificationID)
}
