package domain

import (
	"context"
	"time"
)

// ContractRepository persists published care recommendations. Contract
// history is append-only: "replacing" a recommendation means the newest row
// wins reads; published rows are never updated in place.
type ContractRepository interface {
	SaveRecommendation(ctx context.Context, sessionID string, rec *CareRecommendation) error
	LatestRecommendation(ctx context.Context, sessionID, moduleID string) (*CareRecommendation, error)
	RecommendationHistory(ctx context.Context, sessionID, moduleID string) ([]*CareRecommendation, error)
}

// SnapshotStore persists session snapshots at explicit save points.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *SessionSnapshot) error
	Load(ctx context.Context, sessionID string) (*SessionSnapshot, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// RuleSource resolves validated rule sets for assessment modules.
type RuleSource interface {
	RuleSet(moduleID string) (*RuleSet, error)
	Modules() []string
}

// AppointmentRequest is the booking request forwarded to the advisor
// scheduling service.
type AppointmentRequest struct {
	SessionID     string    `json:"session_id"`
	PreferredTime time.Time `json:"preferred_time"`
	Channel       string    `json:"channel,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Tier          CareTier  `json:"tier,omitempty"`
}

// AppointmentScheduler books advisor appointments with the external
// scheduling service. Booking failure degrades gracefully; it is never a
// core failure.
type AppointmentScheduler interface {
	Book(ctx context.Context, req *AppointmentRequest) (*Appointment, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetStoreConfig() *StoreConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
