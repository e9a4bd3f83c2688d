package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	logger := testLogger()
	normalizer := NewNormalizer(nil, logger)
	resolver := NewPhaseResolver(domain.JourneyConfig{}, normalizer, logger)
	return NewContext("sess-1", normalizer, resolver, logger)
}

func testRecommendation(moduleID string) *domain.CareRecommendation {
	return &domain.CareRecommendation{
		ID:               "rec-1",
		ModuleID:         moduleID,
		Tier:             domain.IN_HOME,
		TierScore:        12,
		Confidence:       0.86,
		GeneratedAt:      time.Now().UTC(),
		RuleVersion:      "2026-01-01",
		InputFingerprint: "sha256:abc",
	}
}

func testProfile() *domain.FinancialProfile {
	upper := 6500.0
	return &domain.FinancialProfile{
		ID:              "fp-1",
		SchemaVersion:   "1.0",
		MonthlyCostBand: domain.Band{Lower: 4500, Upper: &upper},
		GeneratedAt:     time.Now().UTC(),
	}
}

func testAppointment(status domain.AppointmentStatus) *domain.Appointment {
	return &domain.Appointment{
		ID:            "appt-1",
		SchemaVersion: "1.0",
		AdvisorID:     "adv-42",
		ScheduledFor:  time.Now().UTC().Add(48 * time.Hour),
		Status:        status,
		GeneratedAt:   time.Now().UTC(),
	}
}

func TestContextStartsEmptyInDiscovery(t *testing.T) {
	panel := newTestContext(t)

	assert.Equal(t, domain.DISCOVERY, panel.Phase())
	assert.False(t, panel.IsComplete(GCP_KEY))
	_, ok := panel.Recommendation(GCP_KEY)
	assert.False(t, ok)
}

func TestContextMarkCompleteAdvancesPhase(t *testing.T) {
	panel := newTestContext(t)

	assert.True(t, panel.MarkComplete("guided_care_plan"))
	assert.Equal(t, domain.PLANNING, panel.Phase())
	assert.True(t, panel.IsComplete(GCP_KEY))

	assert.False(t, panel.MarkComplete(GCP_KEY), "re-marking is an idempotent no-op")
	assert.Equal(t, domain.PLANNING, panel.Phase())
}

// Publishing a contract marks its product complete in the same step, and a
// re-publish replaces the slot with the newer contract.
func TestContextPublishRecommendation(t *testing.T) {
	panel := newTestContext(t)

	rec := testRecommendation("guided_care_plan")
	require.NoError(t, panel.PublishRecommendation(rec))

	assert.True(t, panel.IsComplete(GCP_KEY))
	assert.Equal(t, domain.PLANNING, panel.Phase())

	got, ok := panel.Recommendation("gcp_v2")
	require.True(t, ok, "recommendation is readable under any alias")
	assert.Equal(t, "rec-1", got.ID)

	newer := testRecommendation("gcp")
	newer.ID = "rec-2"
	newer.TierScore = 19
	require.NoError(t, panel.PublishRecommendation(newer))

	got, ok = panel.Recommendation(GCP_KEY)
	require.True(t, ok)
	assert.Equal(t, "rec-2", got.ID, "re-publish replaces the slot")
}

func TestContextPublishedContractsAreCopies(t *testing.T) {
	panel := newTestContext(t)
	require.NoError(t, panel.PublishRecommendation(testRecommendation("gcp")))

	first, _ := panel.Recommendation(GCP_KEY)
	first.Tier = domain.MEMORY_CARE
	first.Rationale = append(first.Rationale, "mutated")

	second, _ := panel.Recommendation(GCP_KEY)
	assert.Equal(t, domain.IN_HOME, second.Tier, "consumers must not mutate published contracts")
	assert.Empty(t, second.Rationale)
}

func TestContextRejectsInvalidContracts(t *testing.T) {
	panel := newTestContext(t)

	bad := testRecommendation("gcp")
	bad.Confidence = 0.2
	assert.Error(t, panel.PublishRecommendation(bad))
	assert.False(t, panel.IsComplete(GCP_KEY), "failed publish must not touch the ledger")

	assert.Error(t, panel.PublishRecommendation(nil))
	assert.Error(t, panel.PublishFinancialProfile(nil))
	assert.Error(t, panel.PublishAppointment(nil))
}

// Completing the whole planning cohort through contract publication advances
// the phase to engagement; partial completion never does.
func TestContextCohortGatingThroughPublishes(t *testing.T) {
	panel := newTestContext(t)

	require.NoError(t, panel.PublishRecommendation(testRecommendation("gcp")))
	require.NoError(t, panel.PublishFinancialProfile(testProfile()))
	assert.Equal(t, domain.PLANNING, panel.Phase(), "two of three cohort products stay in planning")

	require.NoError(t, panel.PublishAppointment(testAppointment(domain.SCHEDULED)))
	assert.Equal(t, domain.ENGAGEMENT, panel.Phase())
}

func TestContextLegacyProgressShim(t *testing.T) {
	panel := newTestContext(t)

	panel.SetLegacyProgress("cost_planner", 65)

	value, ok := panel.LegacyProgress(COST_KEY)
	require.True(t, ok, "legacy progress is keyed canonically")
	assert.Equal(t, 65.0, value)

	_, ok = panel.LegacyProgress(ADVISOR_KEY)
	assert.False(t, ok)
}

func TestContextEmitsEventsInOrder(t *testing.T) {
	panel := newTestContext(t)

	var events []domain.PanelEvent
	panel.AddListener(func(e domain.PanelEvent) {
		events = append(events, e)
	})

	require.NoError(t, panel.PublishRecommendation(testRecommendation("gcp")))

	require.Len(t, events, 3)
	assert.Equal(t, domain.CONTRACT_EVENT, events[0].Type)
	assert.Equal(t, domain.COMPLETION_EVENT, events[1].Type)
	assert.Equal(t, domain.PHASE_EVENT, events[2].Type)
	assert.Equal(t, domain.PLANNING, events[2].Phase)
	assert.Equal(t, "sess-1", events[0].SessionID)
}

func TestContextResetReturnsToDiscovery(t *testing.T) {
	panel := newTestContext(t)

	require.NoError(t, panel.PublishRecommendation(testRecommendation("gcp")))
	panel.SetLegacyProgress(COST_KEY, 40)
	panel.Reset()

	assert.Equal(t, domain.DISCOVERY, panel.Phase())
	assert.False(t, panel.IsComplete(GCP_KEY))
	_, ok := panel.Recommendation(GCP_KEY)
	assert.False(t, ok)
	_, ok = panel.LegacyProgress(COST_KEY)
	assert.False(t, ok)
}

func TestContextSnapshotRoundTrip(t *testing.T) {
	panel := newTestContext(t)

	require.NoError(t, panel.PublishRecommendation(testRecommendation("gcp")))
	require.NoError(t, panel.PublishFinancialProfile(testProfile()))
	require.NoError(t, panel.PublishAppointment(testAppointment(domain.SCHEDULED)))
	panel.SetLegacyProgress("cost_planner", 100)

	snapshot := panel.Snapshot()
	require.NotNil(t, snapshot)
	assert.Equal(t, "sess-1", snapshot.SessionID)
	assert.Equal(t, domain.ENGAGEMENT, snapshot.Phase)

	restored := newTestContext(t)
	restored.RestoreSnapshot(snapshot)

	assert.Equal(t, domain.ENGAGEMENT, restored.Phase())
	assert.True(t, restored.IsComplete(GCP_KEY))
	assert.True(t, restored.IsComplete(COST_KEY))
	assert.True(t, restored.IsComplete(ADVISOR_KEY))

	rec, ok := restored.Recommendation(GCP_KEY)
	require.True(t, ok)
	assert.Equal(t, "rec-1", rec.ID)

	appt, ok := restored.Appointment()
	require.True(t, ok)
	assert.True(t, appt.IsScheduled())

	progress, ok := restored.LegacyProgress(COST_KEY)
	require.True(t, ok)
	assert.Equal(t, 100.0, progress)
}

// Phases never move backward: a snapshot claiming an earlier phase than the
// restored ledger supports is corrected forward.
func TestContextRestoreNeverMovesPhaseBackward(t *testing.T) {
	panel := newTestContext(t)
	panel.MarkComplete(GCP_KEY)
	snapshot := panel.Snapshot()
	snapshot.Phase = domain.DISCOVERY

	restored := newTestContext(t)
	restored.RestoreSnapshot(snapshot)

	assert.Equal(t, domain.PLANNING, restored.Phase())
}
