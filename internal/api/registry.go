package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
	"github.com/shaneb74/senior-navigator-core/internal/session"
)

// Registry owns the live session panels. Panels are created on demand,
// rehydrated from the snapshot store when a known session reconnects, and
// persisted at explicit save points.
type Registry struct {
	mu         sync.Mutex
	sessions   map[string]*session.Context
	touched    map[string]time.Time
	normalizer *session.Normalizer
	resolver   *session.PhaseResolver
	store      domain.SnapshotStore
	onCreate   func(*session.Context)
	log        *logrus.Logger
}

// NewRegistry creates a session registry. onCreate runs once per live panel
// before it is exposed, so callers can attach event listeners.
func NewRegistry(
	normalizer *session.Normalizer,
	resolver *session.PhaseResolver,
	store domain.SnapshotStore,
	onCreate func(*session.Context),
	logger *logrus.Logger,
) *Registry {
	return &Registry{
		sessions:   make(map[string]*session.Context),
		touched:    make(map[string]time.Time),
		normalizer: normalizer,
		resolver:   resolver,
		store:      store,
		onCreate:   onCreate,
		log:        logger,
	}
}

// Create starts a brand-new session panel.
func (r *Registry) Create(ctx context.Context) (*session.Context, error) {
	sessionID := uuid.New().String()

	panel := r.newPanel(sessionID)

	r.mu.Lock()
	r.sessions[sessionID] = panel
	r.touched[sessionID] = time.Now()
	r.mu.Unlock()

	if err := r.Save(ctx, panel); err != nil {
		return nil, err
	}

	r.log.WithField("session_id", sessionID).Info("Session created")
	return panel, nil
}

// Get returns the live panel for a session, rehydrating it from the
// snapshot store if needed.
func (r *Registry) Get(ctx context.Context, sessionID string) (*session.Context, error) {
	r.mu.Lock()
	panel, ok := r.sessions[sessionID]
	if ok {
		r.touched[sessionID] = time.Now()
	}
	r.mu.Unlock()
	if ok {
		return panel, nil
	}

	snapshot, err := r.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	panel = r.newPanel(sessionID)
	panel.RestoreSnapshot(snapshot)

	r.mu.Lock()
	// Another request may have rehydrated concurrently; keep the first.
	if existing, ok := r.sessions[sessionID]; ok {
		panel = existing
	} else {
		r.sessions[sessionID] = panel
	}
	r.touched[sessionID] = time.Now()
	r.mu.Unlock()

	r.log.WithField("session_id", sessionID).Info("Session rehydrated from snapshot")
	return panel, nil
}

// Save persists the panel's snapshot. This is the only place snapshots are
// written; callers invoke it at save points, never mid-calculation.
func (r *Registry) Save(ctx context.Context, panel *session.Context) error {
	if err := r.store.Save(ctx, panel.Snapshot()); err != nil {
		return fmt.Errorf("saving session %s: %w", panel.SessionID(), err)
	}
	return nil
}

// Delete resets the panel and removes its snapshot.
func (r *Registry) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	panel, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	delete(r.touched, sessionID)
	r.mu.Unlock()

	if ok {
		panel.Reset()
	}

	if err := r.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}

	r.log.WithField("session_id", sessionID).Info("Session deleted")
	return nil
}

// PruneIdle evicts live panels untouched for longer than maxIdle. Evicted
// sessions are not lost: their snapshots stay in the store and the next
// request rehydrates them. Returns the number of panels evicted.
func (r *Registry) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var evicted int
	for sessionID, touched := range r.touched {
		if touched.Before(cutoff) {
			delete(r.sessions, sessionID)
			delete(r.touched, sessionID)
			evicted++
		}
	}
	r.mu.Unlock()

	if evicted > 0 {
		r.log.WithField("count", evicted).Debug("Evicted idle session panels")
	}
	return evicted
}

func (r *Registry) newPanel(sessionID string) *session.Context {
	panel := session.NewContext(sessionID, r.normalizer, r.resolver, r.log)
	if r.onCreate != nil {
		r.onCreate(panel)
	}
	return panel
}
