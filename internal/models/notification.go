package models

import "time"

// NotificationChannel is the medium of an AlertNotification.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
	ChannelPush  NotificationChannel = "push"
	ChannelInApp NotificationChannel = "in_app"
)

// NotificationStatus is the delivery state of an AlertNotification.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationSent      NotificationStatus = "sent"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationFailed    NotificationStatus = "failed"
)

// AlertNotification is one (alert, recipient, channel) delivery record.
type AlertNotification struct {
	ID           string              `json:"id"`
	AlertID      string              `json:"alert_id"`
	RecipientID  string              `json:"recipient_id"`
	Channel      NotificationChannel `json:"channel"`
	Status       NotificationStatus  `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	SentAt       *time.Time          `json:"sent_at,omitempty"`
	ErrorMessage *string             `json:"error_message,omitempty"`
}
