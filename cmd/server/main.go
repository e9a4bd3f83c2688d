// Package main runs the senior navigator HTTP API: session panels,
// assessment scoring, contract history and the advisor scheduling bridge.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/shaneb74/senior-navigator-core/internal/api"
	"github.com/shaneb74/senior-navigator-core/internal/auth"
	"github.com/shaneb74/senior-navigator-core/internal/config"
	"github.com/shaneb74/senior-navigator-core/internal/database"
	"github.com/shaneb74/senior-navigator-core/internal/domain"
	"github.com/shaneb74/senior-navigator-core/internal/repository"
	"github.com/shaneb74/senior-navigator-core/internal/rules"
	"github.com/shaneb74/senior-navigator-core/internal/scheduling"
	"github.com/shaneb74/senior-navigator-core/internal/session"
	"github.com/shaneb74/senior-navigator-core/internal/store"
)

const (
	pruneInterval = 10 * time.Minute
	panelMaxIdle  = 30 * time.Minute
)

func main() {
	// .env is a development convenience; deployments set the environment
	// directly.
	_ = godotenv.Load()

	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(&cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Database.RunMigrations {
		if err := runMigrations(ctx, configManager, logger); err != nil {
			logger.WithError(err).Fatal("Database migrations failed")
		}
	}

	snapshots, err := store.New(cfg.Store, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open snapshot store")
	}
	defer snapshots.Close()

	// The contract history database is optional: without it the API serves
	// recommendations from live panels only.
	var contracts domain.ContractRepository
	db, err := database.NewConnection(ctx, configManager.GetDatabaseConfig(), logger)
	if err != nil {
		logger.WithError(err).Warn("Contract database unavailable; recommendation history disabled")
	} else {
		defer db.Close()
		contracts = repository.NewContractRepository(db.Pool, logger)
	}

	jwtManager, err := auth.NewJWTManager(cfg.Auth, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize token manager")
	}

	loader, err := rules.NewLoader(cfg.Rules, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load rule sets")
	}

	scheduler := scheduling.NewClient(cfg.Scheduling, logger)

	normalizer := session.NewNormalizer(cfg.Journey.KeyAliases, logger)
	resolver := session.NewPhaseResolver(cfg.Journey, normalizer, logger)
	hub := api.NewEventHub(logger)
	registry := api.NewRegistry(normalizer, resolver, snapshots, func(panel *session.Context) {
		panel.AddListener(hub.Broadcast)
	}, logger)

	server, err := api.NewServer(configManager, loader, registry, hub, scheduler, contracts, jwtManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build HTTP server")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gctx)
	})

	// Idle panels are evicted periodically; their snapshots stay in the
	// store and rehydrate on the next request.
	g.Go(func() error {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				registry.PruneIdle(panelMaxIdle)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("Server exited with error")
	}
	logger.Info("Server stopped")
}

func newLogger(cfg *domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Output == "file" && cfg.Filename != "" {
		file, err := os.OpenFile(cfg.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			logger.SetOutput(file)
		} else {
			logger.WithError(err).Warn("Failed to open log file, falling back to stderr")
		}
	}

	return logger
}

func runMigrations(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), "migrations", logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	return runner.Up(ctx)
}
