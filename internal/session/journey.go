package session

import (
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// PhaseResolver derives the journey phase from a completion ledger.
// discovery → planning fires when the entry product completes; planning →
// engagement fires only when the entire planning cohort is complete. Partial
// cohort completion keeps the session in planning: cohort members never
// graduate individually.
type PhaseResolver struct {
	entryKey string
	cohort   []string
	logger   *logrus.Logger
}

// NewPhaseResolver builds a resolver from journey configuration. Configured
// keys are normalized once here; empty configuration falls back to the
// canonical entry product and planning cohort.
func NewPhaseResolver(cfg domain.JourneyConfig, normalizer *Normalizer, logger *logrus.Logger) *PhaseResolver {
	entry := cfg.EntryKey
	if entry == "" {
		entry = GCP_KEY
	}
	cohort := cfg.PlanningCohort
	if len(cohort) == 0 {
		cohort = []string{GCP_KEY, COST_KEY, ADVISOR_KEY}
	}

	normalized := make([]string, 0, len(cohort))
	for _, key := range cohort {
		normalized = append(normalized, normalizer.Normalize(key))
	}

	return &PhaseResolver{
		entryKey: normalizer.Normalize(entry),
		cohort:   normalized,
		logger:   logger,
	}
}

// Resolve computes the phase the ledger currently supports. Resolution is
// pure; the owning context enforces that the reported phase never moves
// backward.
func (r *PhaseResolver) Resolve(ledger *Ledger) domain.JourneyPhase {
	allComplete := true
	for _, key := range r.cohort {
		if !ledger.IsComplete(key) {
			allComplete = false
			break
		}
	}
	if allComplete {
		return domain.ENGAGEMENT
	}

	if ledger.IsComplete(r.entryKey) {
		return domain.PLANNING
	}
	return domain.DISCOVERY
}

// EntryKey returns the canonical entry product key.
func (r *PhaseResolver) EntryKey() string {
	return r.entryKey
}

// PlanningCohort returns a copy of the canonical cohort keys.
func (r *PhaseResolver) PlanningCohort() []string {
	return append([]string(nil), r.cohort...)
}
