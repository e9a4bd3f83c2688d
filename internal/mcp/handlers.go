package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
	"github.com/shaneb74/senior-navigator-core/internal/session"
	"github.com/shaneb74/senior-navigator-core/internal/unlock"
)

// GetRecommendationParams defines parameters for the get_recommendation tool.
type GetRecommendationParams struct {
	SessionID string `json:"session_id"`
	Module    string `json:"module,omitempty"`
}

// GetRecommendationResult is the saved recommendation plus where the
// session stands in its journey.
type GetRecommendationResult struct {
	SessionID      string                     `json:"session_id"`
	Module         string                     `json:"module"`
	Recommendation *domain.CareRecommendation `json:"recommendation"`
	JourneyPhase   string                     `json:"journey_phase"`
}

// WhatIfScoreParams defines parameters for the what_if_score tool.
type WhatIfScoreParams struct {
	Module  string            `json:"module,omitempty"`
	Answers map[string]string `json:"answers"`
}

// WhatIfScoreResult is a scoring run over hypothetical answers. Nothing is
// published anywhere; the result exists only in this response.
type WhatIfScoreResult struct {
	Module       string             `json:"module"`
	RuleVersion  string             `json:"rule_version"`
	Tier         domain.CareTier    `json:"tier"`
	Score        int                `json:"score"`
	TierRankings []domain.TierScore `json:"tier_rankings"`
	Confidence   float64            `json:"confidence"`
	Flags        []domain.Flag      `json:"flags"`
	Rationale    []string           `json:"rationale"`
}

// CheckUnlockParams defines parameters for the check_unlock tool.
type CheckUnlockParams struct {
	SessionID    string   `json:"session_id"`
	Requirements []string `json:"requirements"`
}

// CheckUnlockResult maps each requirement string to its verdict. Malformed
// requirements report false, matching the fail-locked evaluation rule.
type CheckUnlockResult struct {
	SessionID string          `json:"session_id"`
	Results   map[string]bool `json:"results"`
}

// JourneySummaryParams defines parameters for the journey_summary tool.
type JourneySummaryParams struct {
	SessionID string `json:"session_id"`
}

// ModuleStatus describes one assessment module within a session.
type ModuleStatus struct {
	Key      string  `json:"key"`
	Complete bool    `json:"complete"`
	Tier     string  `json:"tier,omitempty"`
	Progress float64 `json:"progress,omitempty"`
}

// JourneySummaryResult is a coach-friendly snapshot of a session.
type JourneySummaryResult struct {
	SessionID           string         `json:"session_id"`
	JourneyPhase        string         `json:"journey_phase"`
	Modules             []ModuleStatus `json:"modules"`
	HasFinancialProfile bool           `json:"has_financial_profile"`
	AppointmentStatus   string         `json:"appointment_status,omitempty"`
	NextStep            string         `json:"next_step"`
}

// handleGetRecommendation handles the get_recommendation tool.
func (s *CoachServer) handleGetRecommendation(ctx context.Context, req *mcp.CallToolRequest, params GetRecommendationParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "get_recommendation").Debug("Tool invoked")

	if params.SessionID == "" {
		return errorResult("session_id is required"), nil, nil
	}
	module := params.Module
	if module == "" {
		module = s.resolver.EntryKey()
	}

	panel, err := s.loadPanel(ctx, params.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errorResult(fmt.Sprintf("no saved session %s", params.SessionID)), nil, nil
		}
		return nil, nil, fmt.Errorf("loading session: %w", err)
	}

	rec, ok := panel.Recommendation(module)
	if !ok {
		return errorResult(fmt.Sprintf("session has no recommendation for module %q yet", module)), nil, nil
	}

	result := GetRecommendationResult{
		SessionID:      params.SessionID,
		Module:         module,
		Recommendation: rec,
		JourneyPhase:   string(panel.Phase()),
	}

	summary := fmt.Sprintf("Recommended care tier for %s: %s (score %d, confidence %.2f)",
		module, rec.Tier, rec.TierScore, rec.Confidence)
	return textResult(summary), result, nil
}

// handleWhatIfScore handles the what_if_score tool.
func (s *CoachServer) handleWhatIfScore(ctx context.Context, req *mcp.CallToolRequest, params WhatIfScoreParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "what_if_score").Debug("Tool invoked")

	if len(params.Answers) == 0 {
		return errorResult("answers are required"), nil, nil
	}
	module := params.Module
	if module == "" {
		module = s.resolver.EntryKey()
	}

	var cached WhatIfScoreResult
	if s.cache.Get(ctx, "what_if_score", params, &cached) {
		return textResult(whatIfSummary(&cached)), cached, nil
	}

	engine, err := s.engineFor(module)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errorResult(fmt.Sprintf("unknown assessment module %q", module)), nil, nil
		}
		return nil, nil, fmt.Errorf("building scoring engine: %w", err)
	}

	answers := domain.NewAnswerSetFrom(params.Answers)
	rec, err := engine.BuildRecommendation(answers, s.config.RationaleLimit)
	if err != nil {
		return errorResult(fmt.Sprintf("answers could not be scored: %v", err)), nil, nil
	}

	result := WhatIfScoreResult{
		Module:       module,
		RuleVersion:  rec.RuleVersion,
		Tier:         rec.Tier,
		Score:        rec.TierScore,
		TierRankings: rec.TierRankings,
		Confidence:   rec.Confidence,
		Flags:        rec.Flags,
		Rationale:    rec.Rationale,
	}

	if err := s.cache.Set(ctx, "what_if_score", params, result); err != nil {
		s.logger.WithError(err).Warn("Failed to cache what-if result")
	}

	return textResult(whatIfSummary(&result)), result, nil
}

// handleCheckUnlock handles the check_unlock tool.
func (s *CoachServer) handleCheckUnlock(ctx context.Context, req *mcp.CallToolRequest, params CheckUnlockParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "check_unlock").Debug("Tool invoked")

	if params.SessionID == "" {
		return errorResult("session_id is required"), nil, nil
	}
	if len(params.Requirements) == 0 {
		return errorResult("at least one requirement is required"), nil, nil
	}

	panel, err := s.loadPanel(ctx, params.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errorResult(fmt.Sprintf("no saved session %s", params.SessionID)), nil, nil
		}
		return nil, nil, fmt.Errorf("loading session: %w", err)
	}

	evaluator := unlock.NewEvaluator(panel, s.logger)
	results := make(map[string]bool, len(params.Requirements))
	unlocked := 0
	for _, raw := range params.Requirements {
		ok := evaluator.Evaluate(raw)
		results[raw] = ok
		if ok {
			unlocked++
		}
	}

	result := CheckUnlockResult{SessionID: params.SessionID, Results: results}
	summary := fmt.Sprintf("%d of %d requirements unlocked", unlocked, len(params.Requirements))
	return textResult(summary), result, nil
}

// handleJourneySummary handles the journey_summary tool.
func (s *CoachServer) handleJourneySummary(ctx context.Context, req *mcp.CallToolRequest, params JourneySummaryParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "journey_summary").Debug("Tool invoked")

	if params.SessionID == "" {
		return errorResult("session_id is required"), nil, nil
	}

	panel, err := s.loadPanel(ctx, params.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errorResult(fmt.Sprintf("no saved session %s", params.SessionID)), nil, nil
		}
		return nil, nil, fmt.Errorf("loading session: %w", err)
	}

	result := JourneySummaryResult{
		SessionID:    params.SessionID,
		JourneyPhase: string(panel.Phase()),
	}

	for _, key := range s.resolver.PlanningCohort() {
		status := ModuleStatus{
			Key:      key,
			Complete: panel.IsComplete(key),
		}
		if rec, ok := panel.Recommendation(key); ok {
			status.Tier = string(rec.Tier)
		}
		if progress, ok := panel.LegacyProgress(key); ok {
			status.Progress = progress
		}
		result.Modules = append(result.Modules, status)
	}

	_, result.HasFinancialProfile = panel.FinancialProfile()
	if appt, ok := panel.Appointment(); ok {
		result.AppointmentStatus = string(appt.Status)
	}
	result.NextStep = nextStep(panel, s.resolver.EntryKey(), s.resolver.PlanningCohort())

	summary := fmt.Sprintf("Session is in the %s phase. Next step: %s",
		result.JourneyPhase, result.NextStep)
	return textResult(summary), result, nil
}

// nextStep picks the first incomplete item in the journey ordering: entry
// assessment, then the rest of the planning cohort, then advisor booking.
func nextStep(panel *session.Context, entryKey string, cohort []string) string {
	if !panel.IsComplete(entryKey) {
		return fmt.Sprintf("complete the %s assessment", entryKey)
	}
	for _, key := range cohort {
		if key == entryKey {
			continue
		}
		if !panel.IsComplete(key) {
			return fmt.Sprintf("complete the %s module", key)
		}
	}
	if appt, ok := panel.Appointment(); !ok || !appt.IsScheduled() {
		return "schedule an advisor appointment"
	}
	return "all planning steps are complete"
}

func whatIfSummary(result *WhatIfScoreResult) string {
	parts := []string{
		fmt.Sprintf("Hypothetical answers score %d, landing in the %s tier with confidence %.2f.",
			result.Score, result.Tier, result.Confidence),
	}
	if len(result.Flags) > 0 {
		ids := make([]string, 0, len(result.Flags))
		for _, flag := range result.Flags {
			ids = append(ids, flag.ID)
		}
		parts = append(parts, "Raised flags: "+strings.Join(ids, ", ")+".")
	}
	return strings.Join(parts, " ")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}
