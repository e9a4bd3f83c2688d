package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Store      StoreConfig      `mapstructure:"store"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Rules      RulesConfig      `mapstructure:"rules"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Journey    JourneyConfig    `mapstructure:"journey"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	MCP        MCPConfig        `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLSEnabled   bool          `mapstructure:"tls_enabled"`
	CertFile     string        `mapstructure:"cert_file"`
	KeyFile      string        `mapstructure:"key_file"`
}

// DatabaseConfig represents contract database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	RunMigrations   bool          `mapstructure:"run_migrations"`
}

// StoreConfig represents session snapshot store configuration. Driver is
// one of "sqlite", "postgres" or "redis".
type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
	PostgresDB string `mapstructure:"postgres_dsn"`
	RedisURL   string `mapstructure:"redis_url"`
}

// CacheConfig represents result cache configuration
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// SchedulingConfig represents the advisor booking service client
// configuration
type SchedulingConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimit   int           `mapstructure:"rate_limit"`
	RetryCount  int           `mapstructure:"retry_count"`
	BreakerName string        `mapstructure:"breaker_name"`
}

// AuthConfig represents session token configuration
type AuthConfig struct {
	Issuer         string        `mapstructure:"issuer"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	PublicKeyPath  string        `mapstructure:"public_key_path"`
}

// RulesConfig represents rule set loading configuration
type RulesConfig struct {
	Directory string `mapstructure:"directory"`
	CacheSize int    `mapstructure:"cache_size"`
}

// ScoringConfig represents scoring engine configuration. BandPolicy is the
// single band-to-representative-value policy for the whole process.
type ScoringConfig struct {
	BandPolicy     string `mapstructure:"band_policy"`
	RationaleLimit int    `mapstructure:"rationale_limit"`
}

// JourneyConfig represents journey phase resolution configuration. The
// planning cohort must complete together before the phase advances to
// engagement.
type JourneyConfig struct {
	EntryKey       string            `mapstructure:"entry_key"`
	PlanningCohort []string          `mapstructure:"planning_cohort"`
	KeyAliases     map[string]string `mapstructure:"key_aliases"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MCPConfig represents MCP coaching surface configuration
type MCPConfig struct {
	ServerName     string        `mapstructure:"server_name"`
	ServerVersion  string        `mapstructure:"server_version"`
	TransportType  string        `mapstructure:"transport_type"` // "stdio"
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	EnableCaching  bool          `mapstructure:"enable_caching"`
	ToolCacheTTL   time.Duration `mapstructure:"tool_cache_ttl"`
}
