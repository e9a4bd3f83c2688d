package session

import (
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// Ledger records which canonical products are complete and unlocked for one
// session. Every raw key passes through the normalizer before touching an
// entry, so historical aliases always land on a single canonical row.
// Entries are added on first touch and removed only by Reset.
type Ledger struct {
	normalizer *Normalizer
	entries    map[string]domain.LedgerEntry
	logger     *logrus.Logger
}

// NewLedger creates an empty ledger bound to the given normalizer.
func NewLedger(normalizer *Normalizer, logger *logrus.Logger) *Ledger {
	return &Ledger{
		normalizer: normalizer,
		entries:    make(map[string]domain.LedgerEntry),
		logger:     logger,
	}
}

// MarkComplete records the product as complete and unlocked. Marking an
// already-complete product again is an idempotent no-op; the return reports
// whether anything changed.
func (l *Ledger) MarkComplete(rawKey string) bool {
	key := l.normalizer.Normalize(rawKey)
	entry := l.entries[key]
	if entry.Completed {
		l.logger.WithFields(logrus.Fields{
			"key": key,
		}).Debug("Product already complete, no-op")
		return false
	}
	entry.Completed = true
	entry.Unlocked = true
	l.entries[key] = entry

	l.logger.WithFields(logrus.Fields{
		"key":     key,
		"raw_key": rawKey,
	}).Info("Marked product complete")
	return true
}

// IsComplete reports whether the product has been completed.
func (l *Ledger) IsComplete(rawKey string) bool {
	return l.entries[l.normalizer.Normalize(rawKey)].Completed
}

// IsUnlocked reports whether the product is available to the user.
func (l *Ledger) IsUnlocked(rawKey string) bool {
	return l.entries[l.normalizer.Normalize(rawKey)].Unlocked
}

// SetUnlocked records the product's unlock state without touching
// completion.
func (l *Ledger) SetUnlocked(rawKey string, unlocked bool) {
	key := l.normalizer.Normalize(rawKey)
	entry := l.entries[key]
	entry.Unlocked = unlocked
	l.entries[key] = entry
}

// CompletedKeys returns the canonical keys currently marked complete.
func (l *Ledger) CompletedKeys() []string {
	var keys []string
	for key, entry := range l.entries {
		if entry.Completed {
			keys = append(keys, key)
		}
	}
	return keys
}

// Snapshot returns a copy of the ledger entries for persistence.
func (l *Ledger) Snapshot() map[string]domain.LedgerEntry {
	out := make(map[string]domain.LedgerEntry, len(l.entries))
	for key, entry := range l.entries {
		out[key] = entry
	}
	return out
}

// Restore replaces the ledger contents from a persisted snapshot. Keys are
// normalized on the way in so snapshots written under old aliases still
// land on canonical rows.
func (l *Ledger) Restore(entries map[string]domain.LedgerEntry) {
	l.entries = make(map[string]domain.LedgerEntry, len(entries))
	for key, entry := range entries {
		l.entries[l.normalizer.Normalize(key)] = entry
	}
}

// Reset drops every entry. Only an explicit session reset calls this.
func (l *Ledger) Reset() {
	l.entries = make(map[string]domain.LedgerEntry)
}
