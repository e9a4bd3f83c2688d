package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

const snapshotKeyPrefix = "session:snapshot:"

// RedisStore implements SnapshotStore using Redis. Snapshots are stored
// without expiry; reset deletes them explicitly.
type RedisStore struct {
	redis *redis.Client
	log   *logrus.Logger
}

// NewRedisStore creates a new Redis snapshot store.
func NewRedisStore(redisURL string, logger *logrus.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithField("addr", opts.Addr).Info("Connected Redis snapshot store")

	return &RedisStore{redis: client, log: logger}, nil
}

func snapshotKey(sessionID string) string {
	return snapshotKeyPrefix + sessionID
}

// Save writes a snapshot, replacing any previous snapshot for the session.
func (s *RedisStore) Save(ctx context.Context, snapshot *domain.SessionSnapshot) error {
	if snapshot.SessionID == "" {
		return domain.NewValidationError("session_id", "session id is required", snapshot.SessionID)
	}
	if snapshot.SavedAt.IsZero() {
		snapshot.SavedAt = time.Now().UTC()
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	if err := s.redis.Set(ctx, snapshotKey(snapshot.SessionID), data, 0).Err(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"session_id": snapshot.SessionID,
		"phase":      snapshot.Phase,
	}).Debug("Session snapshot saved")

	return nil
}

// Load reads the snapshot for a session.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*domain.SessionSnapshot, error) {
	data, err := s.redis.Get(ctx, snapshotKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("snapshot for session %s: %w", sessionID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var snapshot domain.SessionSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		// Remove the corrupted entry rather than serving it forever
		s.redis.Del(ctx, snapshotKey(sessionID))
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}

	return &snapshot, nil
}

// Delete removes the snapshot for a session.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, snapshotKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
