package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
	"github.com/shaneb74/senior-navigator-core/internal/session"
	"github.com/shaneb74/senior-navigator-core/internal/unlock"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"code":           code,
		"error":          message,
		"correlation_id": c.GetString("correlation_id"),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// panel resolves the session panel for the route or writes the error
// response.
func (s *Server) panel(c *gin.Context) (*session.Context, bool) {
	panel, err := s.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(c, http.StatusNotFound, domain.ErrSessionNotFound, "session not found")
		} else {
			s.log.WithError(err).Error("Failed to load session")
			respondError(c, http.StatusInternalServerError, domain.ErrStorage, "failed to load session")
		}
		return nil, false
	}
	return panel, true
}

// savePanel persists the panel at a save point or writes the error response.
func (s *Server) savePanel(c *gin.Context, panel *session.Context) bool {
	if err := s.registry.Save(c.Request.Context(), panel); err != nil {
		s.log.WithError(err).Error("Failed to save session snapshot")
		respondError(c, http.StatusInternalServerError, domain.ErrStorage, "failed to persist session")
		return false
	}
	return true
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"modules":   s.rules.Modules(),
	})
}

// handleListModules lists every loadable assessment module.
func (s *Server) handleListModules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modules": s.rules.Modules()})
}

// handleGetRuleSet serves a module's validated rule set so clients can
// render the questionnaire.
func (s *Server) handleGetRuleSet(c *gin.Context) {
	ruleSet, err := s.rules.RuleSet(c.Param("module"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(c, http.StatusNotFound, domain.ErrInvalidInput, "unknown assessment module")
			return
		}
		s.log.WithError(err).Error("Failed to load rule set")
		respondError(c, http.StatusInternalServerError, domain.ErrRuleSetInvalid, "rule set unavailable")
		return
	}
	c.JSON(http.StatusOK, ruleSet)
}

type createSessionRequest struct {
	Role string `json:"role"`
}

// handleCreateSession starts a session and issues its bearer token.
func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	// Body is optional
	_ = c.ShouldBindJSON(&req)

	panel, err := s.registry.Create(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to create session")
		respondError(c, http.StatusInternalServerError, domain.ErrStorage, "failed to create session")
		return
	}

	token, expiresAt, err := s.jwt.IssueToken(panel.SessionID(), req.Role)
	if err != nil {
		s.log.WithError(err).Error("Failed to issue session token")
		respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, "failed to issue token")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": panel.SessionID(),
		"token":      token,
		"expires_at": expiresAt,
		"phase":      panel.Phase(),
	})
}

// handleGetSession returns the panel summary.
func (s *Server) handleGetSession(c *gin.Context) {
	panel, ok := s.panel(c)
	if !ok {
		return
	}

	summary := gin.H{
		"session_id": panel.SessionID(),
		"phase":      panel.Phase(),
		"created_at": panel.CreatedAt(),
	}

	snapshot := panel.Snapshot()
	summary["ledger"] = snapshot.Ledger

	contracts := gin.H{}
	for key := range snapshot.Recommendations {
		contracts[key] = "recommendation"
	}
	if snapshot.FinancialProfile != nil {
		contracts["cost"] = "financial_profile"
	}
	if snapshot.Appointment != nil {
		contracts["advisor"] = "appointment"
	}
	summary["contracts"] = contracts

	c.JSON(http.StatusOK, summary)
}

// handleResetSession wipes the session back to a fresh start.
func (s *Server) handleResetSession(c *gin.Context) {
	if err := s.registry.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.log.WithError(err).Error("Failed to delete session")
		respondError(c, http.StatusInternalServerError, domain.ErrStorage, "failed to reset session")
		return
	}
	c.Status(http.StatusNoContent)
}

// handleJourney reports the session's journey phase and what drives it.
func (s *Server) handleJourney(c *gin.Context) {
	panel, ok := s.panel(c)
	if !ok {
		return
	}

	snapshot := panel.Snapshot()
	var completed []string
	for key, entry := range snapshot.Ledger {
		if entry.Completed {
			completed = append(completed, key)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"phase":     panel.Phase(),
		"completed": completed,
	})
}

type submitAssessmentRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

// handleSubmitAssessment scores a completed assessment and publishes the
// resulting recommendation contract into the panel.
func (s *Server) handleSubmitAssessment(c *gin.Context) {
	panel, ok := s.panel(c)
	if !ok {
		return
	}

	var req submitAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "answers are required")
		return
	}

	moduleID := c.Param("module")
	engine, err := s.engineFor(moduleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(c, http.StatusNotFound, domain.ErrInvalidInput, "unknown assessment module")
			return
		}
		s.log.WithError(err).Error("Failed to build scoring engine")
		respondError(c, http.StatusInternalServerError, domain.ErrRuleSetInvalid, "rule set unavailable")
		return
	}

	answers := domain.NewAnswerSetFrom(req.Answers)
	rec, err := engine.BuildRecommendation(answers, s.rationaleLimit)
	if err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			respondError(c, http.StatusUnprocessableEntity, domain.ErrValidation, validationErr.Error())
			return
		}
		respondError(c, http.StatusUnprocessableEntity, domain.ErrValidation, err.Error())
		return
	}

	// dry_run scores the answers without publishing anything: no contract,
	// no ledger change, no snapshot.
	if c.Query("dry_run") == "true" {
		c.JSON(http.StatusOK, rec)
		return
	}

	if err := panel.PublishRecommendation(rec); err != nil {
		s.log.WithError(err).Error("Recommendation rejected at publication")
		respondError(c, http.StatusUnprocessableEntity, domain.ErrValidation, "recommendation failed validation")
		return
	}

	// Contract history is best-effort; the live panel remains the source of
	// truth when the history store is down.
	if s.contracts != nil {
		if err := s.contracts.SaveRecommendation(c.Request.Context(), panel.SessionID(), rec); err != nil {
			s.log.WithFields(logrus.Fields{
				"session_id": panel.SessionID(),
				"module_id":  moduleID,
				"error":      err,
			}).Warn("Failed to append recommendation history")
		}
	}

	if !s.savePanel(c, panel) {
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// handleGetRecommendation serves the currently published recommendation for
// a module slot.
func (s *Server) handleGetRecommendation(c *gin.Context) {
	panel, ok := s.panel(c)
	if !ok {
		return
	}

	rec, ok := panel.Recommendation(c.Param("module"))
	if !ok {
		respondError(c, http.StatusNotFound, domain.ErrInvalidInput, "no recommendation published for module")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleRecommendationHistory serves the append-only contract history.
func (s *Server) handleRecommendationHistory(c *gin.Context) {
	if s.contracts == nil {
		respondError(c, http.StatusNotFound, domain.ErrInvalidInput, "contract history is not enabled")
		return
	}

	history, err := s.contracts.RecommendationHistory(c.Request.Context(), c.Param("id"), c.Param("module"))
	if err != nil {
		s.log.WithError(err).Error("Failed to load recommendation history")
		respondError(c, http.StatusInternalServerError, domain.ErrStorage, "failed to load history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// handlePublishFinancialProfile stores the cost planner's contract.
func (s *Server) handlePublishFinancialProfile(c *gin.Context) {
	panel, ok := s.panel(c)
	if !ok {
		return
	}

	var profile domain.FinancialProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "malformed financial profile")
		return
	}
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	if profile.SchemaVersion == "" {
		profile.SchemaVersion = "1"
	}
	if profile.GeneratedAt.IsZero() {
		profile.GeneratedAt = time.Now().UTC()
	}

	if err := panel.PublishFinancialProfile(&profile); err != nil {
		respondError(c, http.StatusUnprocessableEntity, domain.ErrValidation, err.Error())
		return
	}

	if !s.savePanel(c, panel) {
		return
	}

	c.JSON(http.StatusCreated, &profile)
}

// handleGetFinancialProfile serves the published cost-planning contract.
func (s *Server) handleGetFinancialProfile(c *gin.Context) {
	panel, ok := s.panel(c)
	if !ok {
		return
	}

	profile, ok := panel.FinancialProfile()
	if !ok {
		respondError(c, http.StatusNotFound, domain.ErrInvalidInput, "no financial profile published")
		return
	}
	c.JSON(http.StatusOK, profile)
}

type bookAppointmentRequest struct {
	PreferredTime time.Time `json:"preferred_time" binding:"required"`
	Channel       string    `json:"channel"`
	Notes         string    `json:"notes"`
}

// handleBookAppointment books through the scheduling service and publishes
// the appointment contract. Booking failure is a degraded response, never a
// core failure.
func (s *Server) handleBookAppointment(c *gin.Context) {
	panel, ok := s.panel(c)
	if !ok {
		return
	}

	var req bookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "preferred_time is required")
		return
	}

	bookingReq := &domain.AppointmentRequest{
		SessionID:     panel.SessionID(),
		PreferredTime: req.PreferredTime,
		Channel:       req.Channel,
		Notes:         req.Notes,
	}
	if rec, ok := panel.Recommendation("gcp"); ok {
		bookingReq.Tier = rec.Tier
	}

	appointment, err := s.scheduler.Book(c.Request.Context(), bookingReq)
	if err != nil {
		if errors.Is(err, domain.ErrSchedulingUnavailable) {
			respondError(c, http.StatusServiceUnavailable, domain.ErrScheduling, "advisor scheduling is not available")
			return
		}
		s.log.WithError(err).Warn("Advisor booking failed")
		respondError(c, http.StatusBadGateway, domain.ErrScheduling, "booking service failed")
		return
	}

	if err := panel.PublishAppointment(appointment); err != nil {
		respondError(c, http.StatusUnprocessableEntity, domain.ErrValidation, err.Error())
		return
	}

	if !s.savePanel(c, panel) {
		return
	}

	c.JSON(http.StatusCreated, appointment)
}

// handleGetAppointment serves the published appointment contract.
func (s *Server) handleGetAppointment(c *gin.Context) {
	panel, ok := s.panel(c)
	if !ok {
		return
	}

	appointment, ok := panel.Appointment()
	if !ok {
		respondError(c, http.StatusNotFound, domain.ErrInvalidInput, "no appointment published")
		return
	}
	c.JSON(http.StatusOK, appointment)
}

type evaluateUnlocksRequest struct {
	Requirements []string `json:"requirements" binding:"required"`
}

// handleEvaluateUnlocks evaluates unlock requirement expressions against the
// panel. Malformed expressions evaluate locked rather than failing the
// batch.
func (s *Server) handleEvaluateUnlocks(c *gin.Context) {
	panel, ok := s.panel(c)
	if !ok {
		return
	}

	var req evaluateUnlocksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "requirements are required")
		return
	}

	evaluator := unlock.NewEvaluator(panel, s.log)
	results := make(map[string]bool, len(req.Requirements))
	for _, raw := range req.Requirements {
		results[raw] = evaluator.Evaluate(raw)
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

type legacyProgressRequest struct {
	Key     string  `json:"key" binding:"required"`
	Percent float64 `json:"percent"`
}

// handleLegacyProgress records percent progress reported by products that
// have not adopted the completion ledger yet.
func (s *Server) handleLegacyProgress(c *gin.Context) {
	panel, ok := s.panel(c)
	if !ok {
		return
	}

	var req legacyProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "key is required")
		return
	}
	if req.Percent < 0 || req.Percent > 100 {
		respondError(c, http.StatusUnprocessableEntity, domain.ErrValidation, "percent must be within [0, 100]")
		return
	}

	panel.SetLegacyProgress(req.Key, req.Percent)

	if !s.savePanel(c, panel) {
		return
	}
	c.Status(http.StatusNoContent)
}

type legacyScheduledRequest struct {
	Scheduled bool `json:"scheduled"`
}

// handleLegacyScheduled records the legacy boolean booking flag.
func (s *Server) handleLegacyScheduled(c *gin.Context) {
	panel, ok := s.panel(c)
	if !ok {
		return
	}

	var req legacyScheduledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "malformed request")
		return
	}

	panel.SetLegacyScheduled(req.Scheduled)

	if !s.savePanel(c, panel) {
		return
	}
	c.Status(http.StatusNoContent)
}

// handleEvents streams panel events over a websocket. The token may arrive
// as a query parameter because browsers cannot set headers on websocket
// dials.
func (s *Server) handleEvents(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		if len(header) > 7 && header[:7] == "Bearer " {
			token = header[7:]
		}
	}

	claims, err := s.jwt.ValidateToken(token)
	if err != nil || claims.SessionID != c.Param("id") {
		respondError(c, http.StatusUnauthorized, domain.ErrAuthentication, "invalid session token")
		return
	}

	if _, ok := s.panel(c); !ok {
		return
	}

	s.hub.ServeWS(c, claims.SessionID)
}
