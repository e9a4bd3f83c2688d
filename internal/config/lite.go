// Package config provides configuration management for the navigation core.
// This file contains the lightweight configuration for the standalone
// coaching server.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for data files

	// Rule set loading
	RulesDir string // Optional: directory of rule set JSON documents

	// Scoring
	BandPolicy     string // Band-to-value policy: midpoint, lower, upper
	RationaleLimit int    // Rationale entries per recommendation

	// Cache settings
	CacheMaxItems int           // Maximum items in memory cache
	CacheTTL      time.Duration // Default cache TTL
	RedisURL      string        // Optional: Redis URL for a shared tool cache

	// Advisor scheduling (optional in standalone mode)
	SchedulingURL string // Base URL of the advisor booking service

	// Transport settings
	Transport string // Transport type: stdio

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".senior-navigator")

	return &LiteConfig{
		DataDir:        dataDir,
		BandPolicy:     "midpoint",
		RationaleLimit: 3,
		CacheMaxItems:  1000,
		CacheTTL:       15 * time.Minute,
		Transport:      "stdio",
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	// Data directory
	if v := os.Getenv("SN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Rule set directory
	if v := os.Getenv("SN_RULES_DIR"); v != "" {
		cfg.RulesDir = v
	}

	// Scoring
	if v := os.Getenv("SN_BAND_POLICY"); v != "" {
		cfg.BandPolicy = v
	}
	if v := os.Getenv("SN_RATIONALE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RationaleLimit = n
		}
	}

	// Cache settings
	if v := os.Getenv("SN_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("SN_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	cfg.RedisURL = os.Getenv("SN_CACHE_REDIS_URL")

	// Advisor scheduling
	cfg.SchedulingURL = os.Getenv("SN_SCHEDULING_BASE_URL")

	// Transport
	if v := os.Getenv("SN_TRANSPORT"); v != "" {
		cfg.Transport = v
	}

	// Logging
	if v := os.Getenv("SN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SN_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// SessionDBPath returns the path to the session snapshot SQLite database.
func (c *LiteConfig) SessionDBPath() string {
	return filepath.Join(c.DataDir, "sessions.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
