package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneb74/senior-navigator-core/internal/auth"
	"github.com/shaneb74/senior-navigator-core/internal/domain"
	"github.com/shaneb74/senior-navigator-core/internal/rules"
	"github.com/shaneb74/senior-navigator-core/internal/session"
	"github.com/shaneb74/senior-navigator-core/internal/store"
)

// testConfigManager serves a fixed config without touching process-global
// viper state.
type testConfigManager struct {
	cfg *domain.Config
}

func (m *testConfigManager) GetConfig() *domain.Config                 { return m.cfg }
func (m *testConfigManager) GetServerConfig() *domain.ServerConfig     { return &m.cfg.Server }
func (m *testConfigManager) GetDatabaseConfig() *domain.DatabaseConfig { return &m.cfg.Database }
func (m *testConfigManager) GetStoreConfig() *domain.StoreConfig       { return &m.cfg.Store }
func (m *testConfigManager) Reload() error                             { return nil }
func (m *testConfigManager) Validate() error                           { return nil }
func (m *testConfigManager) GetDatabaseConnectionString() string       { return "" }
func (m *testConfigManager) GetRedisConnectionString() string          { return "" }
func (m *testConfigManager) IsProduction() bool                        { return false }
func (m *testConfigManager) IsDevelopment() bool                       { return true }

type fakeScheduler struct {
	appointment *domain.Appointment
	err         error
	lastRequest *domain.AppointmentRequest
}

func (f *fakeScheduler) Book(ctx context.Context, req *domain.AppointmentRequest) (*domain.Appointment, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.appointment.Clone(), nil
}

type testHarness struct {
	server    *Server
	scheduler *fakeScheduler
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &domain.Config{
		Server:  domain.ServerConfig{Host: "127.0.0.1", Port: 0},
		Scoring: domain.ScoringConfig{BandPolicy: "midpoint", RationaleLimit: 3},
		Logging: domain.LoggingConfig{Level: "info"},
	}

	loader, err := rules.NewLoader(domain.RulesConfig{}, logger)
	require.NoError(t, err)

	snapshots, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { snapshots.Close() })

	hub := NewEventHub(logger)
	normalizer := session.NewNormalizer(nil, logger)
	resolver := session.NewPhaseResolver(domain.JourneyConfig{}, normalizer, logger)
	registry := NewRegistry(normalizer, resolver, snapshots, func(panel *session.Context) {
		panel.AddListener(hub.Broadcast)
	}, logger)

	jwtManager, err := auth.NewJWTManager(domain.AuthConfig{TokenTTL: time.Hour}, logger)
	require.NoError(t, err)

	scheduler := &fakeScheduler{
		appointment: &domain.Appointment{
			ID:            "appt-1",
			SchemaVersion: "1",
			AdvisorID:     "adv-9",
			Channel:       "video",
			ScheduledFor:  time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
			Status:        domain.SCHEDULED,
			GeneratedAt:   time.Now().UTC(),
		},
	}

	server, err := NewServer(&testConfigManager{cfg: cfg}, loader, registry, hub, scheduler, nil, jwtManager, logger)
	require.NoError(t, err)

	return &testHarness{server: server, scheduler: scheduler}
}

func (h *testHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *testHarness) createSession(t *testing.T) (sessionID, token string) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
		Phase     string `json:"phase"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "discovery", resp.Phase)
	return resp.SessionID, resp.Token
}

func completeAnswers() map[string]string {
	return map[string]string{
		"adl_bathing":        "some_help",
		"adl_meals":          "reminders",
		"adl_medication":     "some_help",
		"memory_changes":     "moderate",
		"wandering":          "rarely",
		"judgment":           "mild",
		"falls":              "multiple",
		"home_safety":        "moderate",
		"mobility":           "cane",
		"chronic_conditions": "several",
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
	assert.Contains(t, rec.Body.String(), "gcp")
}

func TestSessionRequiresToken(t *testing.T) {
	h := newTestHarness(t)
	sessionID, _ := h.createSession(t)

	rec := h.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenBoundToSession(t *testing.T) {
	h := newTestHarness(t)
	sessionA, _ := h.createSession(t)
	_, tokenB := h.createSession(t)

	rec := h.do(t, http.MethodGet, "/api/v1/sessions/"+sessionA, tokenB, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitAssessmentPublishesRecommendation(t *testing.T) {
	h := newTestHarness(t)
	sessionID, token := h.createSession(t)

	rec := h.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/assessments/gcp", token,
		jsonBody{"answers": completeAnswers()})
	require.Equal(t, http.StatusCreated, rec.Code)

	var published domain.CareRecommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &published))
	assert.Equal(t, domain.IN_HOME, published.Tier)
	assert.Equal(t, 16, published.TierScore)
	assert.NotEmpty(t, published.InputFingerprint)

	// Recommendation slot now serves the contract
	rec = h.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID+"/recommendations/gcp", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Completing the entry assessment advances the journey
	rec = h.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID+"/journey", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "planning")
}

func TestSubmitAssessmentMissingRequiredAnswers(t *testing.T) {
	h := newTestHarness(t)
	sessionID, token := h.createSession(t)

	rec := h.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/assessments/gcp", token,
		jsonBody{"answers": map[string]string{"adl_bathing": "some_help"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmitAssessmentUnknownModule(t *testing.T) {
	h := newTestHarness(t)
	sessionID, token := h.createSession(t)

	rec := h.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/assessments/nope", token,
		jsonBody{"answers": completeAnswers()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFinancialProfileRoundTrip(t *testing.T) {
	h := newTestHarness(t)
	sessionID, token := h.createSession(t)

	upper := 6500.0
	rec := h.do(t, http.MethodPut, "/api/v1/sessions/"+sessionID+"/financial-profile", token,
		domain.FinancialProfile{MonthlyCostBand: domain.Band{Lower: 4500, Upper: &upper}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID+"/financial-profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile domain.FinancialProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, 4500.0, profile.MonthlyCostBand.Lower)
	assert.NotEmpty(t, profile.ID)
}

func TestFullJourneyReachesEngagement(t *testing.T) {
	h := newTestHarness(t)
	sessionID, token := h.createSession(t)

	rec := h.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/assessments/gcp", token,
		jsonBody{"answers": completeAnswers()})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(t, http.MethodPut, "/api/v1/sessions/"+sessionID+"/financial-profile", token,
		domain.FinancialProfile{MonthlyCostBand: domain.Band{Lower: 4000}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/appointments", token,
		jsonBody{"preferred_time": time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The booking request carried the recommended tier along
	require.NotNil(t, h.scheduler.lastRequest)
	assert.Equal(t, domain.IN_HOME, h.scheduler.lastRequest.Tier)

	rec = h.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID+"/journey", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "engagement")
}

func TestBookingUnavailableDegrades(t *testing.T) {
	h := newTestHarness(t)
	h.scheduler.err = domain.ErrSchedulingUnavailable
	sessionID, token := h.createSession(t)

	rec := h.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/appointments", token,
		jsonBody{"preferred_time": time.Now().Add(24 * time.Hour)})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEvaluateUnlocks(t *testing.T) {
	h := newTestHarness(t)
	sessionID, token := h.createSession(t)

	rec := h.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/assessments/gcp", token,
		jsonBody{"answers": completeAnswers()})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(t, http.MethodPut, "/api/v1/sessions/"+sessionID+"/legacy/progress", token,
		jsonBody{"key": "cost", "percent": 60})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/unlocks", token,
		jsonBody{"requirements": []string{"gcp:complete", "cost:>=50", "cost:complete", "advisor:scheduled", "garbage"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results map[string]bool `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Results["gcp:complete"])
	assert.True(t, resp.Results["cost:>=50"])
	assert.False(t, resp.Results["cost:complete"])
	assert.False(t, resp.Results["advisor:scheduled"])
	// Malformed requirements evaluate locked
	assert.False(t, resp.Results["garbage"])
}

func TestResetSession(t *testing.T) {
	h := newTestHarness(t)
	sessionID, token := h.createSession(t)

	rec := h.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/assessments/gcp", token,
		jsonBody{"answers": completeAnswers()})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(t, http.MethodDelete, "/api/v1/sessions/"+sessionID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// A session survives losing its live panel: the registry rehydrates from
// the snapshot store.
func TestSessionRehydratesFromSnapshot(t *testing.T) {
	h := newTestHarness(t)
	sessionID, token := h.createSession(t)

	rec := h.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/assessments/gcp", token,
		jsonBody{"answers": completeAnswers()})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Drop the live panel, keeping the snapshot
	h.server.registry.mu.Lock()
	delete(h.server.registry.sessions, sessionID)
	h.server.registry.mu.Unlock()

	rec = h.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID+"/recommendations/gcp", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID+"/journey", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "planning")
}

func TestRuleSetEndpoints(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/rulesets", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gcp")

	rec = h.do(t, http.MethodGet, "/api/v1/rulesets/gcp", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "daily_living")

	rec = h.do(t, http.MethodGet, "/api/v1/rulesets/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// jsonBody is shorthand for ad-hoc request payloads.
type jsonBody = map[string]any

func TestSubmitAssessmentDryRunDoesNotPublish(t *testing.T) {
	h := newTestHarness(t)
	sessionID, token := h.createSession(t)

	rec := h.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/assessments/gcp?dry_run=true", token,
		jsonBody{"answers": completeAnswers()})
	require.Equal(t, http.StatusOK, rec.Code)

	var scored domain.CareRecommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scored))
	assert.Equal(t, domain.IN_HOME, scored.Tier)
	assert.Equal(t, 16, scored.TierScore)

	// Nothing was published: no recommendation, phase still discovery.
	rec = h.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID+"/recommendations/gcp", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID+"/journey", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "discovery")
}
