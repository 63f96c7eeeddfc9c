package models

import (
	"fmt"
	"time"
)

// AlertType is the severity class of an alert, derived from the overall score at creation.
type AlertType string

const (
	AlertTypePreventive    AlertType = "preventive"
	AlertTypeWarning       AlertType = "warning"
	AlertTypeCritical      AlertType = "critical"
	AlertTypeInformational AlertType = "informational"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusDismissed    AlertStatus = "dismissed"
)

// AlertAction is a clinician operation on an alert.
type AlertAction string

const (
	ActionAcknowledge AlertAction = "acknowledge"
	ActionResolve     AlertAction = "resolve"
	ActionDismiss     AlertAction = "dismiss"
)

// Target is the status an action moves the alert to.
func (a AlertAction) Target() AlertStatus {
	switch a {
	case ActionAcknowledge:
		return AlertStatusAcknowledged
	case ActionResolve:
		return AlertStatusResolved
	case ActionDismiss:
		return AlertStatusDismissed
	}
	return ""
}

// AllowedFrom lists the statuses the action may start from.
func (a AlertAction) AllowedFrom() []AlertStatus {
	switch a {
	case ActionAcknowledge:
		return []AlertStatus{AlertStatusActive}
	case ActionResolve:
		return []AlertStatus{AlertStatusActive, AlertStatusAcknowledged}
	case ActionDismiss:
		return []AlertStatus{AlertStatusActive}
	}
	return nil
}

// CheckTransition returns ErrIllegalTransition when action cannot be applied in status from.
func CheckTransition(from AlertStatus, action AlertAction) error {
	allowed := action.AllowedFrom()
	if allowed == nil {
		return fmt.Errorf("%w: unknown action %q", ErrIllegalTransition, string(action))
	}
	for _, s := range allowed {
		if s == from {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s an alert in status %s", ErrIllegalTransition, action, from)
}

// RiskAlert is one raised alert for a (case, rule) pair.
type RiskAlert struct {
	ID              string      `json:"id"`
	CaseID          string      `json:"case_id"`
	RuleID          string      `json:"rule_id"`
	AlertType       AlertType   `json:"alert_type"`
	Status          AlertStatus `json:"status"`
	Title           string      `json:"title"`
	Message         string      `json:"message"`
	RiskScore       float64     `json:"risk_score"`
	ConfidenceLevel float64     `json:"confidence_level"`
	Recommendations []string    `json:"recommendations"`
	TriggeredAt     time.Time   `json:"triggered_at"`

	AcknowledgedBy *string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedBy     *string    `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	DismissedBy    *string    `json:"dismissed_by,omitempty"`
	DismissedAt    *time.Time `json:"dismissed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
