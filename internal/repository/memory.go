package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/models"
)

// MemoryStore implements every repository in memory. It backs the service when the
// database is disabled and serves as the fake in package tests.
type MemoryStore struct {
	mu sync.RWMutex

	cases         map[string]models.TreatmentCase
	assessments   map[string]models.PreAssessment
	profiles      map[string]models.RiskProfile // case_id -> profile
	factors       map[string]models.RiskFactor
	rules         map[string]models.AlertRule
	alerts        map[string]models.RiskAlert
	notifications map[string]models.AlertNotification
}

var (
	_ CasesRepository         = (*MemoryStore)(nil)
	_ RiskProfilesRepository  = (*MemoryStore)(nil)
	_ RiskFactorsRepository   = (*MemoryStore)(nil)
	_ AlertRulesRepository    = (*MemoryStore)(nil)
	_ RiskAlertsRepository    = (*MemoryStore)(nil)
	_ NotificationsRepository = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases:         map[string]models.TreatmentCase{},
		assessments:   map[string]models.PreAssessment{},
		profiles:      map[string]models.RiskProfile{},
		factors:       map[string]models.RiskFactor{},
		rules:         map[string]models.AlertRule{},
		alerts:        map[string]models.RiskAlert{},
		notifications: map[string]models.AlertNotification{},
	}
}

// PutCase stores a case record.
func (s *MemoryStore) PutCase(tc models.TreatmentCase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc.SecondaryClinicians = append([]models.Clinician(nil), tc.SecondaryClinicians...)
	s.cases[tc.ID] = tc
}

// PutPreAssessment stores a case's pre-assessment.
func (s *MemoryStore) PutPreAssessment(a models.PreAssessment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments[a.CaseID] = a
}

// Notifications returns every stored notification ordered by creation, then id.
func (s *MemoryStore) Notifications() []*models.AlertNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AlertNotification, 0, len(s.notifications))
	for _, n := range s.notifications {
		n := n
		out = append(out, &n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ============================================
// CasesRepository
// ============================================

func (s *MemoryStore) GetCase(_ context.Context, caseID string) (*models.TreatmentCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tc, ok := s.cases[caseID]
	if !ok {
		return nil, fmt.Errorf("case %s: %w", caseID, models.ErrNotFound)
	}
	tc.SecondaryClinicians = append([]models.Clinician{}, tc.SecondaryClinicians...)
	return &tc, nil
}

func (s *MemoryStore) GetPreAssessment(_ context.Context, caseID string) (*models.PreAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assessments[caseID]
	if !ok {
		return nil, fmt.Errorf("pre-assessment for case %s: %w", caseID, models.ErrNotFound)
	}
	return &a, nil
}

func (s *MemoryStore) ListActiveAssessedCaseIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := []string{}
	for id, tc := range s.cases {
		if _, ok := s.assessments[id]; ok && tc.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ============================================
// RiskProfilesRepository
// ============================================

func (s *MemoryStore) GetByCaseID(_ context.Context, caseID string) (*models.RiskProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[caseID]
	if !ok {
		return nil, fmt.Errorf("risk profile for case %s: %w", caseID, models.ErrNotFound)
	}
	p.RiskFactorIDs = append([]string{}, p.RiskFactorIDs...)
	return &p, nil
}

func (s *MemoryStore) Upsert(_ context.Context, profile *models.RiskProfile) error {
	if profile == nil || profile.CaseID == "" {
		return fmt.Errorf("case_id is required")
	}
	if profile.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.profiles[profile.CaseID]; ok {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.CreatedAt = profile.CalculatedAt
	}
	profile.UpdatedAt = profile.CalculatedAt

	stored := *profile
	stored.RiskFactorIDs = append([]string{}, profile.RiskFactorIDs...)
	sort.Strings(stored.RiskFactorIDs)
	s.profiles[profile.CaseID] = stored
	return nil
}

// ============================================
// RiskFactorsRepository
// ============================================

func (s *MemoryStore) ListRiskFactors(_ context.Context, activeOnly bool) ([]*models.RiskFactor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.RiskFactor{}
	for _, f := range s.factors {
		if activeOnly && !f.Active {
			continue
		}
		f := f
		out = append(out, &f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemoryStore) UpsertRiskFactorByName(_ context.Context, factor *models.RiskFactor) (bool, error) {
	if factor == nil || factor.Name == "" {
		return false, fmt.Errorf("risk factor name is required")
	}
	if factor.ID == "" {
		return false, fmt.Errorf("risk factor id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, existing := range s.factors {
		if existing.Name == factor.Name {
			factor.ID = id
			factor.CreatedAt = existing.CreatedAt
			factor.UpdatedAt = now
			s.factors[id] = *factor
			return false, nil
		}
	}
	factor.CreatedAt = now
	factor.UpdatedAt = now
	s.factors[factor.ID] = *factor
	return true, nil
}

// ============================================
// AlertRulesRepository
// ============================================

func (s *MemoryStore) ListAlertRules(_ context.Context, activeOnly bool) ([]*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.AlertRule{}
	for _, r := range s.rules {
		if activeOnly && !r.Active {
			continue
		}
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemoryStore) GetAlertRule(_ context.Context, ruleID string) (*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[ruleID]
	if !ok {
		return nil, fmt.Errorf("alert rule %s: %w", ruleID, models.ErrNotFound)
	}
	return &r, nil
}

func (s *MemoryStore) CreateAlertRule(_ context.Context, rule *models.AlertRule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rules {
		if existing.Name == rule.Name {
			return fmt.Errorf("alert rule name %q: %w", rule.Name, models.ErrConflict)
		}
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	s.rules[rule.ID] = *rule
	return nil
}

func (s *MemoryStore) UpdateAlertRule(_ context.Context, rule *models.AlertRule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rules[rule.ID]
	if !ok {
		return fmt.Errorf("alert rule %s: %w", rule.ID, models.ErrNotFound)
	}
	for id, other := range s.rules {
		if id != rule.ID && other.Name == rule.Name {
			return fmt.Errorf("alert rule name %q: %w", rule.Name, models.ErrConflict)
		}
	}
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()
	s.rules[rule.ID] = *rule
	return nil
}

func (s *MemoryStore) CreateAlertRuleIfAbsent(ctx context.Context, rule *models.AlertRule) (bool, error) {
	s.mu.RLock()
	for _, existing := range s.rules {
		if existing.Name == rule.Name {
			s.mu.RUnlock()
			return false, nil
		}
	}
	s.mu.RUnlock()

	if err := s.CreateAlertRule(ctx, rule); err != nil {
		return false, err
	}
	return true, nil
}

// ============================================
// RiskAlertsRepository
// ============================================

func (s *MemoryStore) CreateIfNoActive(_ context.Context, alert *models.RiskAlert) (bool, error) {
	if alert == nil || alert.ID == "" {
		return false, fmt.Errorf("alert id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.alerts {
		if existing.CaseID == alert.CaseID && existing.RuleID == alert.RuleID &&
			existing.Status == models.AlertStatusActive {
			return false, nil
		}
	}
	stored := *alert
	stored.Recommendations = append([]string{}, alert.Recommendations...)
	s.alerts[alert.ID] = stored
	return true, nil
}

func (s *MemoryStore) GetAlert(_ context.Context, alertID string) (*models.RiskAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[alertID]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", alertID, models.ErrNotFound)
	}
	return &a, nil
}

func (s *MemoryStore) ListCaseAlerts(_ context.Context, caseID string, status models.AlertStatus) ([]*models.RiskAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.RiskAlert{}
	for _, a := range s.alerts {
		if a.CaseID != caseID || (status != "" && a.Status != status) {
			continue
		}
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TriggeredAt.Equal(out[j].TriggeredAt) {
			return out[i].TriggeredAt.After(out[j].TriggeredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, alert *models.RiskAlert, from []models.AlertStatus) (bool, error) {
	if alert == nil || alert.ID == "" {
		return false, fmt.Errorf("alert id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.alerts[alert.ID]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, st := range from {
		if existing.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}

	existing.Status = alert.Status
	existing.AcknowledgedBy = alert.AcknowledgedBy
	existing.AcknowledgedAt = alert.AcknowledgedAt
	existing.ResolvedBy = alert.ResolvedBy
	existing.ResolvedAt = alert.ResolvedAt
	existing.DismissedBy = alert.DismissedBy
	existing.DismissedAt = alert.DismissedAt
	existing.UpdatedAt = alert.UpdatedAt
	s.alerts[alert.ID] = existing
	return true, nil
}

func (s *MemoryStore) PurgeResolvedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, a := range s.alerts {
		if a.Status == models.AlertStatusResolved && a.ResolvedAt != nil && a.ResolvedAt.Before(cutoff) {
			delete(s.alerts, id)
			n++
		}
	}
	return n, nil
}

// ============================================
// NotificationsRepository
// ============================================

func (s *MemoryStore) CreateNotification(_ context.Context, n *models.AlertNotification) (bool, error) {
	if n == nil || n.ID == "" {
		return false, fmt.Errorf("notification id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.notifications {
		if existing.AlertID == n.AlertID && existing.RecipientID == n.RecipientID && existing.Channel == n.Channel {
			return false, nil
		}
	}
	s.notifications[n.ID] = *n
	return true, nil
}

func (s *MemoryStore) GetNotification(_ context.Context, notificationID string) (*models.AlertNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[notificationID]
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", notificationID, models.ErrNotFound)
	}
	return &n, nil
}

func (s *MemoryStore) MarkSent(_ context.Context, notificationID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[notificationID]
	if !ok {
		return fmt.Errorf("notification %s: %w", notificationID, models.ErrNotFound)
	}
	if n.Status != models.NotificationPending {
		return fmt.Errorf("notification %s is not pending: %w", notificationID, models.ErrConflict)
	}
	n.Status = models.NotificationSent
	n.SentAt = &sentAt
	n.ErrorMessage = nil
	s.notifications[notificationID] = n
	return nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, notificationID, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[notificationID]
	if !ok {
		return fmt.Errorf("notification %s: %w", notificationID, models.ErrNotFound)
	}
	if n.Status != models.NotificationPending {
		return fmt.Errorf("notification %s is not pending: %w", notificationID, models.ErrConflict)
	}
	n.Status = models.NotificationFailed
	n.ErrorMessage = &errorMessage
	s.notifications[notificationID] = n
	return nil
}
