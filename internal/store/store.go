// Package store persists session snapshots at explicit save points. Three
// drivers share one JSON document model: SQLite for standalone deployments,
// PostgreSQL for shared ones, Redis when snapshots should live next to the
// result cache.
package store

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// New builds the snapshot store named by the configured driver.
func New(cfg domain.StoreConfig, logger *logrus.Logger) (domain.SnapshotStore, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, logger)
	case "postgres":
		return NewPostgresStoreFromURL(cfg.PostgresDB, logger)
	case "redis":
		return NewRedisStore(cfg.RedisURL, logger)
	default:
		return nil, fmt.Errorf("unknown snapshot store driver %q", cfg.Driver)
	}
}
