// Package session implements the cross-product state coordinator: canonical
// key normalization, the completion ledger, journey phase resolution and the
// per-session panel context that publishes immutable contracts to read-only
// consumers.
package session

import (
	"github.com/sirupsen/logrus"
)

// Canonical product keys. Every historical identifier normalizes onto one of
// these (or passes through unchanged when unknown).
const (
	GCP_KEY     = "gcp"
	COST_KEY    = "cost"
	ADVISOR_KEY = "advisor"
)

// builtinAliases maps every historical or versioned product identifier onto
// its canonical key. New products need no row here: unknown keys pass
// through unchanged by design, so a product can ship before its aliases do.
var builtinAliases = map[string]string{
	// Guided care plan
	"guided_care_plan": GCP_KEY,
	"guidedCarePlan":   GCP_KEY,
	"care_plan":        GCP_KEY,
	"gcp_v2":           GCP_KEY,
	// Cost planner
	"cost_planner": COST_KEY,
	"costPlanner":  COST_KEY,
	"cost_v2":      COST_KEY,
	"cost_of_care": COST_KEY,
	// Advisor booking
	"pfma":                ADVISOR_KEY,
	"plan_for_my_advisor": ADVISOR_KEY,
	"advisor_booking":     ADVISOR_KEY,
	"advisor_v2":          ADVISOR_KEY,
}

// Normalizer maps arbitrary product identifiers, including historical
// aliases, onto one canonical identifier. Normalization is a pure lookup
// with identity default and is idempotent: a canonical key normalizes to
// itself.
type Normalizer struct {
	aliases map[string]string
	logger  *logrus.Logger
}

// NewNormalizer builds a normalizer from the built-in alias table merged
// with extra rows (extra rows win on conflict). Rows whose canonical side is
// itself an alias would break idempotence and are dropped with a warning.
func NewNormalizer(extra map[string]string, logger *logrus.Logger) *Normalizer {
	merged := make(map[string]string, len(builtinAliases)+len(extra))
	for alias, canonical := range builtinAliases {
		merged[alias] = canonical
	}
	for alias, canonical := range extra {
		merged[alias] = canonical
	}

	for alias, canonical := range merged {
		if alias == canonical {
			delete(merged, alias)
			continue
		}
		if chained, ok := merged[canonical]; ok && chained != canonical {
			logger.WithFields(logrus.Fields{
				"alias":     alias,
				"canonical": canonical,
				"chains_to": chained,
			}).Warn("Dropping alias whose canonical side is itself an alias")
			delete(merged, alias)
		}
	}

	return &Normalizer{aliases: merged, logger: logger}
}

// Normalize returns the canonical key for raw. Unknown keys pass through
// unchanged, not as an error, so new products can be introduced before the
// alias table learns about them.
func (n *Normalizer) Normalize(raw string) string {
	if canonical, ok := n.aliases[raw]; ok {
		return canonical
	}
	return raw
}

// KnownAliases returns how many alias rows the normalizer carries.
func (n *Normalizer) KnownAliases() int {
	return len(n.aliases)
}
