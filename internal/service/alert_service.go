package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/metrics"
	"github.com/MagicKrazik/ALPHA/internal/models"
	"github.com/MagicKrazik/ALPHA/internal/repository"

	"go.uber.org/zap"
)

// ActiveAlertCache stores each case's active alerts for dashboards.
type ActiveAlertCache interface {
	SetActiveAlerts(ctx context.Context, caseID string, alerts []*models.RiskAlert) error
	GetActiveAlerts(ctx context.Context, caseID string) (alerts []*models.RiskAlert, ok bool, err error)
}

// AlertService runs the alert lifecycle: listing and clinician transitions.
type AlertService struct {
	alerts repository.RiskAlertsRepository
	cache  ActiveAlertCache
	logger *zap.Logger
	now    func() time.Time
}

// NewAlertService creates the alert service. cache may be nil.
func NewAlertService(alerts repository.RiskAlertsRepository, cache ActiveAlertCache, logger *zap.Logger) *AlertService {
	return &AlertService{
		alerts: alerts,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// ============================================
// Queries
// ============================================

// ListCaseAlerts returns the case's alerts, newest first. An empty status lists all.
// Active listings are served from the cache when present.
func (s *AlertService) ListCaseAlerts(ctx context.Context, caseID string, status models.AlertStatus) ([]*models.RiskAlert, error) {
	if caseID == "" {
		return nil, fmt.Errorf("case_id is required")
	}
	switch status {
	case "", models.AlertStatusActive, models.AlertStatusAcknowledged,
		models.AlertStatusResolved, models.AlertStatusDismissed:
	default:
		return nil, fmt.Errorf("unknown alert status %q", string(status))
	}

	if status == models.AlertStatusActive && s.cache != nil {
		cached, ok, err := s.cache.GetActiveAlerts(ctx, caseID)
		if err != nil {
			s.logger.Warn("Active alert cache read failed", zap.String("case_id", caseID), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	alerts, err := s.alerts.ListCaseAlerts(ctx, caseID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	if status == models.AlertStatusActive {
		s.storeActive(ctx, caseID, alerts)
	}
	return alerts, nil
}

// GetAlert returns one alert or models.ErrNotFound.
func (s *AlertService) GetAlert(ctx context.Context, alertID string) (*models.RiskAlert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}
	alert, err := s.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// ============================================
// Transitions
// ============================================

// Acknowledge moves an active alert to acknowledged.
func (s *AlertService) Acknowledge(ctx context.Context, alertID, by string) (*models.RiskAlert, error) {
	return s.transition(ctx, alertID, by, models.ActionAcknowledge)
}

// Resolve moves an active or acknowledged alert to resolved.
// Resolving an active alert acknowledges it implicitly with the same actor and time.
func (s *AlertService) Resolve(ctx context.Context, alertID, by string) (*models.RiskAlert, error) {
	return s.transition(ctx, alertID, by, models.ActionResolve)
}

// Dismiss moves an active alert to dismissed.
func (s *AlertService) Dismiss(ctx context.Context, alertID, by string) (*models.RiskAlert, error) {
	return s.transition(ctx, alertID, by, models.ActionDismiss)
}

func (s *AlertService) transition(ctx context.Context, alertID, by string, action models.AlertAction) (*models.RiskAlert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}
	if by == "" {
		return nil, fmt.Errorf("actor is required")
	}

	alert, err := s.alerts.GetAlert(ctx, alertID)
	if err != nil {
		metrics.AlertTransitions.WithLabelValues(string(action), "error").Inc()
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	if err := models.CheckTransition(alert.Status, action); err != nil {
		metrics.AlertTransitions.WithLabelValues(string(action), "rejected").Inc()
		return nil, fmt.Errorf("alert %s: %w", alertID, err)
	}

	from := alert.Status
	now := s.now()
	switch action {
	case models.ActionAcknowledge:
		alert.AcknowledgedBy = &by
		alert.AcknowledgedAt = &now
	case models.ActionResolve:
		if alert.AcknowledgedAt == nil {
			alert.AcknowledgedBy = &by
			alert.AcknowledgedAt = &now
		}
		alert.ResolvedBy = &by
		alert.ResolvedAt = &now
	case models.ActionDismiss:
		alert.DismissedBy = &by
		alert.DismissedAt = &now
	}
	alert.Status = action.Target()
	alert.UpdatedAt = now

	updated, err := s.alerts.UpdateStatus(ctx, alert, action.AllowedFrom())
	if err != nil {
		metrics.AlertTransitions.WithLabelValues(string(action), "error").Inc()
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	if !updated {
		// Another request changed the status between the read and the write.
		metrics.AlertTransitions.WithLabelValues(string(action), "rejected").Inc()
		return nil, fmt.Errorf("alert %s: %w: status changed concurrently", alertID, models.ErrIllegalTransition)
	}

	metrics.AlertTransitions.WithLabelValues(string(action), "ok").Inc()
	s.logger.Info("Alert status changed",
		zap.String("alert_id", alertID),
		zap.String("case_id", alert.CaseID),
		zap.String("from", string(from)),
		zap.String("to", string(alert.Status)),
		zap.String("by", by),
	)

	s.RefreshActiveAlerts(ctx, alert.CaseID)
	return alert, nil
}

// RefreshActiveAlerts reloads the case's active alerts into the cache. Failures are logged only.
func (s *AlertService) RefreshActiveAlerts(ctx context.Context, caseID string) {
	if s.cache == nil {
		return
	}
	alerts, err := s.alerts.ListCaseAlerts(ctx, caseID, models.AlertStatusActive)
	if err != nil {
		s.logger.Warn("Failed to reload active alerts", zap.String("case_id", caseID), zap.Error(err))
		return
	}
	s.storeActive(ctx, caseID, alerts)
}

func (s *AlertService) storeActive(ctx context.Context, caseID string, alerts []*models.RiskAlert) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetActiveAlerts(ctx, caseID, alerts); err != nil {
		s.logger.Warn("Failed to update active alert cache", zap.String("case_id", caseID), zap.Error(err))
	}
}

// PurgeResolved deletes resolved alerts whose resolution is older than retention.
func (s *AlertService) PurgeResolved(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	n, err := s.alerts.PurgeResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge resolved alerts: %w", err)
	}
	s.logger.Info("Purged resolved alerts",
		zap.Int64("deleted", n),
		zap.Time("cutoff", cutoff),
	)
	return n, nil
}
