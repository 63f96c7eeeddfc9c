package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	rediscommon "github.com/MagicKrazik/ALPHA/internal/common/redis"
	"github.com/MagicKrazik/ALPHA/internal/models"
	"github.com/MagicKrazik/ALPHA/internal/notifier"
	"github.com/MagicKrazik/ALPHA/internal/repository"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testNow
}

func intPtr(v int) *int {
	return &v
}

type publishedEvent struct {
	stream string
	event  interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, stream string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{stream: stream, event: event})
	return nil
}

// take returns and clears the events published on stream as stream messages.
func (p *recordingPublisher) take(t *testing.T, stream string) []rediscommon.StreamMessage {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []rediscommon.StreamMessage
	var rest []publishedEvent
	for i, e := range p.events {
		if e.stream != stream {
			rest = append(rest, e)
			continue
		}
		data, err := json.Marshal(e.event)
		require.NoError(t, err)
		out = append(out, rediscommon.StreamMessage{
			Stream: stream,
			ID:     fmt.Sprintf("%d-0", i+1),
			Values: map[string]interface{}{"data": string(data)},
		})
	}
	p.events = rest
	return out
}

func (p *recordingPublisher) count(stream string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.stream == stream {
			n++
		}
	}
	return n
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]*models.RiskAlert
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]*models.RiskAlert{}}
}

func (c *memoryCache) SetActiveAlerts(_ context.Context, caseID string, alerts []*models.RiskAlert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[caseID] = alerts
	c.sets++
	return nil
}

func (c *memoryCache) GetActiveAlerts(_ context.Context, caseID string) ([]*models.RiskAlert, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	alerts, ok := c.entries[caseID]
	return alerts, ok, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notifier.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg notifier.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

var errGatewayDown = errors.New("mail gateway returned 503")

func seedCase(store *repository.MemoryStore) {
	store.PutCase(models.TreatmentCase{
		ID:                   "case-1",
		Folio:                "F-2024-001",
		PatientName:          "Juan Pérez",
		Active:               true,
		ResponsibleClinician: models.Clinician{ID: "clin-1", FullName: "Dra. Ana López", Email: "ana@example.com"},
		SecondaryClinicians: []models.Clinician{
			{ID: "clin-2", FullName: "Dr. Luis Ruiz", Email: "luis@example.com"},
			{ID: "clin-1", FullName: "Dra. Ana López", Email: "ana@example.com"},
		},
	})
}

func highRiskAssessment(caseID string) models.PreAssessment {
	bmi := 38.0
	return models.PreAssessment{
		CaseID:          caseID,
		Mallampati:      intPtr(4),
		ASAClass:        intPtr(5),
		BMI:             &bmi,
		PriorDifficulty: true,
		Age:             intPtr(82),
		SpO2RoomAir:     intPtr(88),
		StopBang:        intPtr(6),
		Smoking:         true,
	}
}

func seedAlert(t *testing.T, store *repository.MemoryStore, id string, alertType models.AlertType) *models.RiskAlert {
	t.Helper()
	alert := &models.RiskAlert{
		ID:              id,
		CaseID:          "case-1",
		RuleID:          "rule-" + id,
		AlertType:       alertType,
		Status:          models.AlertStatusActive,
		Title:           "Alert: Riesgo General Crítico",
		Message:         "Overall risk: 85%.",
		RiskScore:       85,
		ConfidenceLevel: 50,
		Recommendations: []string{},
		TriggeredAt:     testNow,
		CreatedAt:       testNow,
		UpdatedAt:       testNow,
	}
	created, err := store.CreateIfNoActive(context.Background(), alert)
	require.NoError(t, err)
	require.True(t, created)
	return alert
}
