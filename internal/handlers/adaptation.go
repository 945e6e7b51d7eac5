package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/pkg/requestdata"
	"github.com/pathwise/pathwise-backend/internal/platform/apierr"
	"github.com/pathwise/pathwise-backend/internal/platform/logger"
	"github.com/pathwise/pathwise-backend/internal/services"
	"github.com/pathwise/pathwise-backend/internal/types"
)

type AdaptationHandler struct {
	log     *logger.Logger
	adapSvc services.AdaptationService
}

func NewAdaptationHandler(log *logger.Logger, adapSvc services.AdaptationService) *AdaptationHandler {
	return &AdaptationHandler{
		log:     log.With("handler", "AdaptationHandler"),
		adapSvc: adapSvc,
	}
}

func identity(c *gin.Context) (*requestdata.RequestData, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.TenantID == uuid.Nil || rd.LearnerID == uuid.Nil {
		RespondError(c, http.StatusForbidden, "forbidden", fmt.Errorf("forbidden"))
		return nil, false
	}
	return rd, true
}

// GET /api/adaptation/profile
func (h *AdaptationHandler) GetProfile(c *gin.Context) {
	rd, ok := identity(c)
	if !ok {
		return
	}
	profile, err := h.adapSvc.GetOrCreateProfile(c.Request.Context(), rd.TenantID, rd.LearnerID)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, profile)
}

// POST /api/adaptation/signals
func (h *AdaptationHandler) ApplySignals(c *gin.Context) {
	rd, ok := identity(c)
	if !ok {
		return
	}
	var body struct {
		Signals []types.Signal `json:"signals"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	profile, err := h.adapSvc.ApplySignals(c.Request.Context(), rd.TenantID, rd.LearnerID, body.Signals)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, profile)
}

// GET /api/adaptation/mastery/:competencyId
func (h *AdaptationHandler) GetMasteryEstimate(c *gin.Context) {
	rd, ok := identity(c)
	if !ok {
		return
	}
	competencyID, err := uuid.Parse(c.Param("competencyId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("malformed competency id"))
		return
	}
	estimate, err := h.adapSvc.GetMasteryEstimate(c.Request.Context(), rd.TenantID, rd.LearnerID, competencyID)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, estimate)
}

// GET /api/adaptation/zpd/:domain
func (h *AdaptationHandler) CalculateZPD(c *gin.Context) {
	rd, ok := identity(c)
	if !ok {
		return
	}
	zpd, err := h.adapSvc.CalculateZPD(c.Request.Context(), rd.TenantID, rd.LearnerID, c.Param("domain"))
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, zpd)
}

// GET /api/adaptation/difficulty/:domain
func (h *AdaptationHandler) GetOptimalDifficulty(c *gin.Context) {
	rd, ok := identity(c)
	if !ok {
		return
	}
	difficulty, err := h.adapSvc.GetOptimalDifficulty(c.Request.Context(), rd.TenantID, rd.LearnerID, c.Param("domain"))
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, gin.H{"optimal_difficulty": difficulty})
}

// GET /api/adaptation/fatigue/:sessionId
func (h *AdaptationHandler) AssessFatigue(c *gin.Context) {
	rd, ok := identity(c)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("malformed session id"))
		return
	}
	assessment, err := h.adapSvc.AssessFatigue(c.Request.Context(), rd.TenantID, rd.LearnerID, sessionID)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, assessment)
}

// POST /api/adaptation/gate
func (h *AdaptationHandler) EvaluateDecisionGate(c *gin.Context) {
	rd, ok := identity(c)
	if !ok {
		return
	}
	var input types.GateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	result, err := h.adapSvc.EvaluateDecisionGate(c.Request.Context(), rd.TenantID, rd.LearnerID, input)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/adaptation/next-steps
func (h *AdaptationHandler) ScoreNextSteps(c *gin.Context) {
	rd, ok := identity(c)
	if !ok {
		return
	}
	var body struct {
		Candidates []types.CandidateStep `json:"candidates"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	scored, err := h.adapSvc.ScoreNextSteps(c.Request.Context(), rd.TenantID, rd.LearnerID, body.Candidates)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, scored)
}

// GET /api/adaptation/rules?scope=
func (h *AdaptationHandler) GetRules(c *gin.Context) {
	rd, ok := identity(c)
	if !ok {
		return
	}
	var scope *types.RuleScope
	if raw := c.Query("scope"); raw != "" {
		s := types.RuleScope(raw)
		scope = &s
	}
	rules, err := h.adapSvc.GetRules(c.Request.Context(), rd.TenantID, scope)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, rules)
}

// POST /api/adaptation/rules
func (h *AdaptationHandler) CreateRule(c *gin.Context) {
	rd, ok := identity(c)
	if !ok {
		return
	}
	var rule types.AdaptationRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	created, err := h.adapSvc.CreateRule(c.Request.Context(), rd.TenantID, &rule)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, created)
}

// PUT /api/adaptation/rules/:id
func (h *AdaptationHandler) UpdateRule(c *gin.Context) {
	rd, ok := identity(c)
	if !ok {
		return
	}
	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("malformed rule id"))
		return
	}
	var rule types.AdaptationRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	rule.ID = ruleID
	updated, err := h.adapSvc.UpdateRule(c.Request.Context(), rd.TenantID, &rule)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, updated)
}

// GET /api/adaptation/history?session_id=&since=
func (h *AdaptationHandler) GetAdaptationHistory(c *gin.Context) {
	rd, ok := identity(c)
	if !ok {
		return
	}
	var sessionID *uuid.UUID
	if raw := c.Query("session_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("malformed session id"))
			return
		}
		sessionID = &id
	}
	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("since must be RFC 3339"))
			return
		}
		since = &ts
	}
	events, err := h.adapSvc.GetAdaptationHistory(c.Request.Context(), rd.TenantID, rd.LearnerID, sessionID, since)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, events)
}
