package models

// AssessmentSavedEvent is published by record management when a pre-assessment is written.
type AssessmentSavedEvent struct {
	CaseID string `json:"case_id"`
}

// ProfileUpdatedEvent follows a persisted profile rebuild.
type ProfileUpdatedEvent struct {
	CaseID             string `json:"case_id"`
	ProfileID          string `json:"profile_id"`
	CalculationVersion string `json:"calculation_version"`
}

// AlertCreatedEvent follows a persisted alert.
type AlertCreatedEvent struct {
	AlertID   string    `json:"alert_id"`
	CaseID    string    `json:"case_id"`
	AlertType AlertType `json:"alert_type"`
}

// DeliveryRequestedEvent asks the delivery worker to send one pending notification.
type DeliveryRequestedEvent struct {
	NotificationID string              `json:"notification_id"`
	AlertID        string              `json:"alert_id"`
	Channel        NotificationChannel `json:"channel"`
}
