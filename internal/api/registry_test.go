package api

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
	"github.com/shaneb74/senior-navigator-core/internal/session"
	"github.com/shaneb74/senior-navigator-core/internal/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	snapshots, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { snapshots.Close() })

	normalizer := session.NewNormalizer(nil, logger)
	resolver := session.NewPhaseResolver(domain.JourneyConfig{}, normalizer, logger)
	return NewRegistry(normalizer, resolver, snapshots, nil, logger)
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	panel, err := r.Create(ctx)
	require.NoError(t, err)

	got, err := r.Get(ctx, panel.SessionID())
	require.NoError(t, err)
	assert.Same(t, panel, got)
}

func TestRegistryGetUnknownSession(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistryRehydratesAfterEviction(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	panel, err := r.Create(ctx)
	require.NoError(t, err)
	sessionID := panel.SessionID()
	require.True(t, panel.MarkComplete("gcp"))
	require.NoError(t, r.Save(ctx, panel))

	// Force eviction of every live panel.
	evicted := r.PruneIdle(0)
	assert.Equal(t, 1, evicted)

	got, err := r.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.NotSame(t, panel, got)
	assert.True(t, got.IsComplete("gcp"))
}

func TestRegistryPruneIdleKeepsActivePanels(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	panel, err := r.Create(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, r.PruneIdle(time.Hour))

	got, err := r.Get(ctx, panel.SessionID())
	require.NoError(t, err)
	assert.Same(t, panel, got)
}

func TestRegistryDeleteRemovesSnapshot(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	panel, err := r.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, panel.SessionID()))

	_, err = r.Get(ctx, panel.SessionID())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
