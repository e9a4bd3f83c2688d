// Package mcp exposes the navigation core to planning assistants over the
// Model Context Protocol. The coach server is strictly read-only: it answers
// questions about saved sessions and runs what-if scoring, but never writes a
// snapshot or publishes a contract.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/config"
	"github.com/shaneb74/senior-navigator-core/internal/domain"
	"github.com/shaneb74/senior-navigator-core/internal/rules"
	"github.com/shaneb74/senior-navigator-core/internal/scoring"
	"github.com/shaneb74/senior-navigator-core/internal/session"
	"github.com/shaneb74/senior-navigator-core/internal/store"
)

const serverVersion = "v0.1.0"

// CoachServer serves coaching tools over MCP. It reads session snapshots
// from the same store the HTTP API writes, so assistants always see the
// state as of the last save point.
type CoachServer struct {
	config     *config.LiteConfig
	mcpServer  *mcp.Server
	rules      domain.RuleSource
	store      domain.SnapshotStore
	normalizer *session.Normalizer
	resolver   *session.PhaseResolver
	cache      *ResultCache
	policy     domain.BandPolicy
	logger     *logrus.Logger

	enginesMu sync.Mutex
	engines   map[string]*scoring.Engine
}

// CoachServerOption is a functional option for CoachServer.
type CoachServerOption func(*CoachServer) error

// WithSnapshotStore sets a custom snapshot store.
func WithSnapshotStore(s domain.SnapshotStore) CoachServerOption {
	return func(cs *CoachServer) error {
		cs.store = s
		return nil
	}
}

// WithRuleSource sets a custom rule source.
func WithRuleSource(r domain.RuleSource) CoachServerOption {
	return func(cs *CoachServer) error {
		cs.rules = r
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) CoachServerOption {
	return func(cs *CoachServer) error {
		cs.logger = logger
		return nil
	}
}

// WithResultCache sets a custom tool result cache.
func WithResultCache(cache *ResultCache) CoachServerOption {
	return func(cs *CoachServer) error {
		cs.cache = cache
		return nil
	}
}

// NewCoachServer creates a coach server from a lite configuration. It
// requires no external services: sessions come from the local SQLite store
// and rule sets from the rules directory, with the built-in catalog as
// fallback. A Redis URL in the configuration adds a shared result cache.
func NewCoachServer(cfg *config.LiteConfig, opts ...CoachServerOption) (*CoachServer, error) {
	server := &CoachServer{
		config:  cfg,
		logger:  logrus.New(),
		engines: make(map[string]*scoring.Engine),
	}

	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	server.logger.SetLevel(level)

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	policy, err := domain.ParseBandPolicy(cfg.BandPolicy)
	if err != nil {
		return nil, fmt.Errorf("invalid band policy: %w", err)
	}
	server.policy = policy

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if server.store == nil {
		sqliteStore, err := store.NewSQLiteStore(cfg.SessionDBPath(), server.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		server.store = sqliteStore
	}

	if server.rules == nil {
		loader, err := rules.NewLoader(domain.RulesConfig{Directory: cfg.RulesDir}, server.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule sets: %w", err)
		}
		server.rules = loader
	}

	if server.cache == nil {
		cache, err := NewResultCache(ResultCacheConfig{
			MaxEntries: cfg.CacheMaxItems,
			TTL:        cfg.CacheTTL,
			RedisURL:   cfg.RedisURL,
		}, server.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		server.cache = cache
	}

	server.normalizer = session.NewNormalizer(nil, server.logger)
	server.resolver = session.NewPhaseResolver(domain.JourneyConfig{}, server.normalizer, server.logger)

	serverInfo := &mcp.Implementation{
		Name:    "senior-navigator-coach",
		Version: serverVersion,
	}
	server.mcpServer = mcp.NewServer(serverInfo, nil)
	server.registerTools()

	server.logger.Info("Coach server initialized")
	return server, nil
}

// registerTools wires the coaching tools into the MCP server.
func (s *CoachServer) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_recommendation",
		Description: "Fetch the saved care recommendation for a session's assessment module, including tier, confidence, flags and rationale.",
	}, s.handleGetRecommendation)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "what_if_score",
		Description: "Score a hypothetical set of assessment answers without touching any session. Useful for exploring how answer changes move the care tier.",
	}, s.handleWhatIfScore)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "check_unlock",
		Description: "Evaluate unlock requirements such as 'gcp:complete' or 'cost:>=50' against a session's current state.",
	}, s.handleCheckUnlock)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "journey_summary",
		Description: "Summarize where a session stands: journey phase, completed assessments, financial profile and advisor appointment status.",
	}, s.handleJourneySummary)

	s.logger.WithField("tool_count", 4).Info("Registered coaching tools")
}

// Run starts the coach server on the stdio transport and blocks until the
// context is canceled or the client disconnects.
func (s *CoachServer) Run(ctx context.Context) error {
	s.logger.Info("Starting coach server on stdio transport")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("coach server failed: %w", err)
	}
	return nil
}

// Close releases the session store and cache.
func (s *CoachServer) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loadPanel rehydrates a session panel from its last snapshot. The panel is
// a throwaway read view: nothing the coach does is saved back.
func (s *CoachServer) loadPanel(ctx context.Context, sessionID string) (*session.Context, error) {
	snapshot, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	panel := session.NewContext(sessionID, s.normalizer, s.resolver, s.logger)
	panel.RestoreSnapshot(snapshot)
	return panel, nil
}

// engineFor returns the scoring engine for a module, rebuilding it when the
// rule set version changes.
func (s *CoachServer) engineFor(moduleID string) (*scoring.Engine, error) {
	ruleSet, err := s.rules.RuleSet(moduleID)
	if err != nil {
		return nil, err
	}

	s.enginesMu.Lock()
	defer s.enginesMu.Unlock()

	if engine, ok := s.engines[moduleID]; ok && engine.RuleSet().Version == ruleSet.Version {
		return engine, nil
	}

	engine, err := scoring.NewEngine(ruleSet, s.policy, s.logger)
	if err != nil {
		return nil, err
	}
	s.engines[moduleID] = engine
	return engine, nil
}
