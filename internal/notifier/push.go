package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher is the MQTT publish operation used for push notifications.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

type pushPayload struct {
	AlertID     string    `json:"alert_id"`
	CaseID      string    `json:"case_id"`
	Folio       string    `json:"folio"`
	AlertType   string    `json:"alert_type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	RiskScore   float64   `json:"risk_score"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// PushSender publishes alerts on a per-clinician MQTT topic.
type PushSender struct {
	publisher   Publisher
	topicPrefix string
}

// NewPushSender creates the sender. Topics are topicPrefix + clinician id.
func NewPushSender(publisher Publisher, topicPrefix string) *PushSender {
	return &PushSender{publisher: publisher, topicPrefix: topicPrefix}
}

// Topic returns the clinician's push topic.
func (s *PushSender) Topic(clinicianID string) string {
	return s.topicPrefix + clinicianID
}

// Send implements the push channel.
func (s *PushSender) Send(_ context.Context, msg Message) error {
	payload, err := json.Marshal(pushPayload{
		AlertID:     msg.Alert.ID,
		CaseID:      msg.Alert.CaseID,
		Folio:       msg.Case.Folio,
		AlertType:   string(msg.Alert.AlertType),
		Title:       msg.Alert.Title,
		Message:     msg.Alert.Message,
		RiskScore:   msg.Alert.RiskScore,
		TriggeredAt: msg.Alert.TriggeredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}
	return s.publisher.Publish(s.Topic(msg.Recipient.ID), false, payload)
}
