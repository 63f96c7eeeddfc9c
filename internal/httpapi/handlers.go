package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MagicKrazik/ALPHA/internal/evaluator"
	"github.com/MagicKrazik/ALPHA/internal/models"

	"github.com/google/uuid"
)

// actorHeader carries the id of the clinician performing an alert transition.
const actorHeader = "X-User-Id"

// ============================================
// Risk profiles and factors
// ============================================

func (s *Server) getRiskProfile(w http.ResponseWriter, r *http.Request) {
	caseID, err := pathID(r, "caseID", "case")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	profile, err := s.services.Profiles.GetProfile(r.Context(), caseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(profileView(profile)))
}

// riskProfileResponse adds the derived level to the stored profile.
type riskProfileResponse struct {
	*models.RiskProfile
	RiskLevel string `json:"risk_level"`
}

func profileView(p *models.RiskProfile) riskProfileResponse {
	return riskProfileResponse{RiskProfile: p, RiskLevel: string(evaluator.AlertTypeFor(p.Overall()))}
}

func (s *Server) listRiskFactors(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := parseBool(r.URL.Query().Get("active"), false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	factors, err := s.services.Profiles.ListRiskFactors(r.Context(), activeOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(factors))
}

// ============================================
// Alerts
// ============================================

func (s *Server) listCaseAlerts(w http.ResponseWriter, r *http.Request) {
	caseID, err := pathID(r, "caseID", "case")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := models.AlertStatus(strings.ToLower(r.URL.Query().Get("status")))
	switch status {
	case "", models.AlertStatusActive, models.AlertStatusAcknowledged,
		models.AlertStatusResolved, models.AlertStatusDismissed:
	default:
		s.writeError(w, r, badRequest("unknown alert status %q", string(status)))
		return
	}

	alerts, err := s.services.Alerts.ListCaseAlerts(r.Context(), caseID, status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(alerts))
}

func (s *Server) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	s.transitionAlert(w, r, models.ActionAcknowledge)
}

func (s *Server) resolveAlert(w http.ResponseWriter, r *http.Request) {
	s.transitionAlert(w, r, models.ActionResolve)
}

func (s *Server) dismissAlert(w http.ResponseWriter, r *http.Request) {
	s.transitionAlert(w, r, models.ActionDismiss)
}

func (s *Server) transitionAlert(w http.ResponseWriter, r *http.Request, action models.AlertAction) {
	alertID, err := pathID(r, "alertID", "alert")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	header := strings.TrimSpace(r.Header.Get(actorHeader))
	if header == "" {
		s.writeError(w, r, badRequest("%s header is required", actorHeader))
		return
	}
	actorID, err := uuid.Parse(header)
	if err != nil {
		s.writeError(w, r, badRequest("%s must be a clinician UUID, got %q", actorHeader, header))
		return
	}
	actor := actorID.String()

	var alert *models.RiskAlert
	switch action {
	case models.ActionAcknowledge:
		alert, err = s.services.Alerts.Acknowledge(r.Context(), alertID, actor)
	case models.ActionResolve:
		alert, err = s.services.Alerts.Resolve(r.Context(), alertID, actor)
	case models.ActionDismiss:
		alert, err = s.services.Alerts.Dismiss(r.Context(), alertID, actor)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(alert))
}

// ============================================
// Alert rules
// ============================================

// ruleRequest is the writable part of an alert rule. Active defaults to true.
type ruleRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	RuleType      models.RuleType `json:"rule_type"`
	RuleConfig    json.RawMessage `json:"rule_config"`
	RiskFactorIDs []string        `json:"risk_factor_ids"`
	Priority      int             `json:"priority"`
	Active        *bool           `json:"active"`
}

func (req *ruleRequest) toRule() *models.AlertRule {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &models.AlertRule{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		RuleType:      req.RuleType,
		RuleConfig:    req.RuleConfig,
		RiskFactorIDs: req.RiskFactorIDs,
		Priority:      req.Priority,
		Active:        active,
	}
}

func (s *Server) decodeRule(r *http.Request) (*models.AlertRule, error) {
	var req ruleRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		return nil, err
	}
	for _, id := range req.RiskFactorIDs {
		if _, err := uuid.Parse(id); err != nil {
			return nil, badRequest("risk_factor_ids: %q is not a UUID", id)
		}
	}
	return req.toRule(), nil
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := parseBool(r.URL.Query().Get("active"), false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.services.Rules.List(r.Context(), activeOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (s *Server) getRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := pathID(r, "ruleID", "alert rule")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rule, err := s.services.Rules.Get(r.Context(), ruleID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rule))
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.decodeRule(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.services.Rules.Create(r.Context(), rule)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(created))
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := pathID(r, "ruleID", "alert rule")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rule, err := s.decodeRule(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.services.Rules.Update(r.Context(), ruleID, rule)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(updated))
}

func (s *Server) validateRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.decodeRule(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.services.Rules.Validate(rule); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]bool{"valid": true}))
}
