package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// PostgresStore implements SnapshotStore using PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL snapshot store on an existing
// connection and ensures the snapshot table exists.
func NewPostgresStore(db *sql.DB, logger *logrus.Logger) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session_snapshots (
			session_id TEXT PRIMARY KEY,
			snapshot JSONB NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}

	return &PostgresStore{db: db, log: logger}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL snapshot store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save writes a snapshot, replacing any previous snapshot for the session.
func (s *PostgresStore) Save(ctx context.Context, snapshot *domain.SessionSnapshot) error {
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_snapshots (session_id, snapshot, saved_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET
			snapshot = EXCLUDED.snapshot,
			saved_at = EXCLUDED.saved_at`,
		snapshot.SessionID, data, snapshot.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"session_id": snapshot.SessionID,
		"phase":      snapshot.Phase,
	}).Debug("Session snapshot saved")

	return nil
}

// Load reads the snapshot for a session.
func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*domain.SessionSnapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT snapshot FROM session_snapshots WHERE session_id = $1", sessionID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot for session %s: %w", sessionID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var snapshot domain.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}

	return &snapshot, nil
}

// Delete removes the snapshot for a session.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM session_snapshots WHERE session_id = $1", sessionID,
	)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
