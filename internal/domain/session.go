package domain

import (
	"time"
)

// LedgerEntry is the completion ledger record for one canonical product
// key. Entries are created on first touch and removed only by explicit
// session reset.
type LedgerEntry struct {
	Completed bool `json:"completed"`
	Unlocked  bool `json:"unlocked"`
}

// SessionSnapshot is the persisted form of a session's panel state, written
// at explicit save points only, never mid-calculation.
type SessionSnapshot struct {
	SessionID        string                         `json:"session_id"`
	Ledger           map[string]LedgerEntry         `json:"ledger"`
	LegacyProgress   map[string]float64             `json:"legacy_progress,omitempty"`
	LegacyScheduled  bool                           `json:"legacy_scheduled,omitempty"`
	Phase            JourneyPhase                   `json:"phase"`
	Recommendations  map[string]*CareRecommendation `json:"recommendations,omitempty"`
	FinancialProfile *FinancialProfile              `json:"financial_profile,omitempty"`
	Appointment      *Appointment                   `json:"appointment,omitempty"`
	SavedAt          time.Time                      `json:"saved_at"`
}

// PanelEventType identifies what changed in a session's panel.
type PanelEventType string

const (
	COMPLETION_EVENT PanelEventType = "completion"
	PHASE_EVENT      PanelEventType = "phase"
	CONTRACT_EVENT   PanelEventType = "contract"
	RESET_EVENT      PanelEventType = "reset"
)

// IsValid validates the panel event type.
func (t PanelEventType) IsValid() bool {
	switch t {
	case COMPLETION_EVENT, PHASE_EVENT, CONTRACT_EVENT, RESET_EVENT:
		return true
	default:
		return false
	}
}

// PanelEvent is the read-only change notification consumers receive when a
// session's panel state advances. Events describe state, they never carry a
// mutation entry point.
type PanelEvent struct {
	SessionID string         `json:"session_id"`
	Type      PanelEventType `json:"type"`
	Key       string         `json:"key,omitempty"`
	Phase     JourneyPhase   `json:"phase"`
	At        time.Time      `json:"at"`
}
