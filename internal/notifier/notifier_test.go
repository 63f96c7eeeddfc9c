package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMessage() Message {
	return Message{
		Recipient: models.Clinician{ID: "clin-1", FullName: "Dra. Ana López", Email: "ana@example.com"},
		Case:      &models.TreatmentCase{ID: "case-1", Folio: "F-2024-001", PatientName: "Juan Pérez"},
		Alert: &models.RiskAlert{
			ID:              "alert-1",
			CaseID:          "case-1",
			AlertType:       models.AlertTypeCritical,
			Title:           "Difficult Airway Alert",
			Message:         "The patient has an elevated risk (85%) of difficult airway.",
			RiskScore:       85,
			ConfidenceLevel: 75,
			Recommendations: []string{"Consider video laryngoscopy"},
		},
	}
}

func TestSubjectAndBody(t *testing.T) {
	msg := testMessage()

	assert.Equal(t, "ALPHA - Critical alert: Difficult Airway Alert", Subject(msg.Alert))

	body := Body(msg)
	assert.Contains(t, body, "Dra. Ana López")
	assert.Contains(t, body, "Juan Pérez")
	assert.Contains(t, body, "F-2024-001")
	assert.Contains(t, body, "Difficult Airway Alert")
	assert.Contains(t, body, "elevated risk (85%)")
	assert.Contains(t, body, "Risk level: 85.0%")
	assert.Contains(t, body, "Confidence: 75.0%")
	assert.Contains(t, body, "- Consider video laryngoscopy")
}

func TestEmailSender_Send(t *testing.T) {
	var got sendMailRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg-1"}`))
	}))
	defer server.Close()

	sender := NewEmailSender(server.URL, "secret", "alertas@alpha.local", 5*time.Second, zap.NewNop())
	require.NoError(t, sender.Send(context.Background(), testMessage()))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "alertas@alpha.local", got.From)
	assert.Equal(t, []string{"ana@example.com"}, got.To)
	assert.Equal(t, "ALPHA - Critical alert: Difficult Airway Alert", got.Subject)
	assert.Contains(t, got.Text, "Juan Pérez")
}

func TestEmailSender_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid recipient"}`))
	}))
	defer server.Close()

	sender := NewEmailSender(server.URL, "", "alertas@alpha.local", 5*time.Second, zap.NewNop())
	err := sender.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestEmailSender_NotConfigured(t *testing.T) {
	sender := NewEmailSender("", "", "alertas@alpha.local", time.Second, zap.NewNop())
	assert.ErrorIs(t, sender.Send(context.Background(), testMessage()), ErrGatewayNotConfigured)
}

func TestEmailSender_MissingAddress(t *testing.T) {
	sender := NewEmailSender("http://127.0.0.1:1", "", "alertas@alpha.local", time.Second, zap.NewNop())
	msg := testMessage()
	msg.Recipient.Email = ""
	assert.Error(t, sender.Send(context.Background(), msg))
}

type fakeMQTT struct {
	topic   string
	payload []byte
	err     error
}

func (f *fakeMQTT) Publish(topic string, _ bool, payload []byte) error {
	f.topic = topic
	f.payload = payload
	return f.err
}

func TestPushSender_Send(t *testing.T) {
	mqtt := &fakeMQTT{}
	sender := NewPushSender(mqtt, "alpha/clinicians/")

	require.NoError(t, sender.Send(context.Background(), testMessage()))
	assert.Equal(t, "alpha/clinicians/clin-1", mqtt.topic)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(mqtt.payload, &payload))
	assert.Equal(t, "alert-1", payload["alert_id"])
	assert.Equal(t, "F-2024-001", payload["folio"])
	assert.Equal(t, "critical", payload["alert_type"])
}

func TestPushSender_PublishError(t *testing.T) {
	sender := NewPushSender(&fakeMQTT{err: errors.New("not connected")}, "alpha/clinicians/")
	assert.Error(t, sender.Send(context.Background(), testMessage()))
}
