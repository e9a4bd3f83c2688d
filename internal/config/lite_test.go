package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, "midpoint", cfg.BandPolicy)
	assert.Equal(t, 3, cfg.RationaleLimit)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	// Clear relevant env vars
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, "stdio", cfg.Transport)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	// Set environment variables
	os.Setenv("SN_DATA_DIR", "/tmp/test-navigator")
	os.Setenv("SN_RULES_DIR", "/tmp/rules")
	os.Setenv("SN_BAND_POLICY", "lower")
	os.Setenv("SN_CACHE_MAX_ITEMS", "500")
	os.Setenv("SN_CACHE_TTL", "12h")
	os.Setenv("SN_LOG_LEVEL", "debug")
	os.Setenv("SN_SCHEDULING_BASE_URL", "https://advisors.example.com")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-navigator", cfg.DataDir)
	assert.Equal(t, "/tmp/rules", cfg.RulesDir)
	assert.Equal(t, "lower", cfg.BandPolicy)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://advisors.example.com", cfg.SchedulingURL)
}

func TestLiteConfig_SessionDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.senior-navigator"}

	path := cfg.SessionDBPath()

	assert.Equal(t, "/home/user/.senior-navigator/sessions.db", path)
}

func TestLiteConfig_ExportDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.senior-navigator"}

	path := cfg.ExportDir()

	assert.Equal(t, "/home/user/.senior-navigator/exports", path)
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "navigator")}

	err = cfg.EnsureDataDir()
	require.NoError(t, err)

	// Verify directories exist
	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"SN_DATA_DIR",
		"SN_RULES_DIR",
		"SN_BAND_POLICY",
		"SN_RATIONALE_LIMIT",
		"SN_CACHE_MAX_ITEMS",
		"SN_CACHE_TTL",
		"SN_CACHE_REDIS_URL",
		"SN_SCHEDULING_BASE_URL",
		"SN_TRANSPORT",
		"SN_LOG_LEVEL",
		"SN_LOG_FORMAT",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
