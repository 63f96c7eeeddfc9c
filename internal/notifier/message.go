// Package notifier delivers alert notifications through the mail gateway and MQTT.
package notifier

import (
	"fmt"
	"strings"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// Message is everything a transport needs to deliver one notification.
type Message struct {
	Notification *models.AlertNotification
	Recipient    models.Clinician
	Case         *models.TreatmentCase
	Alert        *models.RiskAlert
}

// Subject is the email subject of an alert.
func Subject(alert *models.RiskAlert) string {
	return "ALPHA - Critical alert: " + alert.Title
}

// Body renders the plain-text email body.
func Body(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", msg.Recipient.FullName)
	b.WriteString("A critical perioperative risk alert was raised for one of your patients.\n\n")
	fmt.Fprintf(&b, "Patient: %s\n", msg.Case.PatientName)
	fmt.Fprintf(&b, "Folio: %s\n", msg.Case.Folio)
	fmt.Fprintf(&b, "Alert: %s\n", msg.Alert.Title)
	fmt.Fprintf(&b, "Message: %s\n", msg.Alert.Message)
	fmt.Fprintf(&b, "Risk level: %.1f%%\n", msg.Alert.RiskScore)
	fmt.Fprintf(&b, "Confidence: %.1f%%\n", msg.Alert.ConfidenceLevel)
	if len(msg.Alert.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, r := range msg.Alert.Recommendations {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	b.WriteString("\nPlease review the alert in ALPHA.\n")
	return b.String()
}
