// Package api exposes the navigation core over HTTP: session lifecycle,
// assessment submission, contract reads, unlock evaluation and a websocket
// event stream per session.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/auth"
	"github.com/shaneb74/senior-navigator-core/internal/domain"
	"github.com/shaneb74/senior-navigator-core/internal/middleware"
	"github.com/shaneb74/senior-navigator-core/internal/scoring"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	rules         domain.RuleSource
	registry      *Registry
	hub           *EventHub
	scheduler     domain.AppointmentScheduler
	contracts     domain.ContractRepository
	jwt           *auth.JWTManager
	router        *gin.Engine
	server        *http.Server
	log           *logrus.Logger

	policy         domain.BandPolicy
	rationaleLimit int

	enginesMu sync.Mutex
	engines   map[string]*scoring.Engine
}

// NewServer creates a new HTTP server instance. The contract repository is
// optional; without it recommendation history is served from the live panel
// only.
func NewServer(
	configManager domain.ConfigManager,
	rules domain.RuleSource,
	registry *Registry,
	hub *EventHub,
	scheduler domain.AppointmentScheduler,
	contracts domain.ContractRepository,
	jwtManager *auth.JWTManager,
	logger *logrus.Logger,
) (*Server, error) {
	cfg := configManager.GetConfig()

	policy, err := domain.ParseBandPolicy(cfg.Scoring.BandPolicy)
	if err != nil {
		return nil, fmt.Errorf("configuring band policy: %w", err)
	}

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	rateLimiter, err := middleware.NewRateLimiter(50, 100)
	if err != nil {
		return nil, fmt.Errorf("configuring rate limiter: %w", err)
	}

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware())
	router.Use(rateLimiter.Handler())
	router.Use(middleware.RequestTimeout(30 * time.Second))

	server := &Server{
		configManager:  configManager,
		rules:          rules,
		registry:       registry,
		hub:            hub,
		scheduler:      scheduler,
		contracts:      contracts,
		jwt:            jwtManager,
		router:         router,
		log:            logger,
		policy:         policy,
		rationaleLimit: cfg.Scoring.RationaleLimit,
		engines:        make(map[string]*scoring.Engine),
	}

	// Setup routes
	server.setupRoutes()

	return server, nil
}

// Start starts the HTTP server and blocks until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")

	v1.GET("/rulesets", s.handleListModules)
	v1.GET("/rulesets/:module", s.handleGetRuleSet)

	v1.POST("/sessions", s.handleCreateSession)

	// Everything under a session requires a token bound to it. The event
	// stream authenticates inside the handler so browser clients can pass
	// the token as a query parameter.
	v1.GET("/sessions/:id/events", s.handleEvents)

	authed := v1.Group("/sessions/:id")
	authed.Use(middleware.SessionAuth(s.jwt))
	{
		authed.GET("", s.handleGetSession)
		authed.DELETE("", s.handleResetSession)
		authed.GET("/journey", s.handleJourney)
		authed.POST("/assessments/:module", s.handleSubmitAssessment)
		authed.GET("/recommendations/:module", s.handleGetRecommendation)
		authed.GET("/recommendations/:module/history", s.handleRecommendationHistory)
		authed.PUT("/financial-profile", s.handlePublishFinancialProfile)
		authed.GET("/financial-profile", s.handleGetFinancialProfile)
		authed.POST("/appointments", s.handleBookAppointment)
		authed.GET("/appointment", s.handleGetAppointment)
		authed.POST("/unlocks", s.handleEvaluateUnlocks)
		authed.PUT("/legacy/progress", s.handleLegacyProgress)
		authed.PUT("/legacy/scheduled", s.handleLegacyScheduled)
	}
}

// engineFor returns the scoring engine for a module, rebuilding it when the
// rule set version changes.
func (s *Server) engineFor(moduleID string) (*scoring.Engine, error) {
	ruleSet, err := s.rules.RuleSet(moduleID)
	if err != nil {
		return nil, err
	}

	s.enginesMu.Lock()
	defer s.enginesMu.Unlock()

	if engine, ok := s.engines[moduleID]; ok && engine.RuleSet().Version == ruleSet.Version {
		return engine, nil
	}

	engine, err := scoring.NewEngine(ruleSet, s.policy, s.log)
	if err != nil {
		return nil, err
	}
	s.engines[moduleID] = engine
	return engine, nil
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
