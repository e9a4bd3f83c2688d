// Package unlock interprets the unlock-requirement grammar that gates
// dependent products: `<key>:<predicate>` where predicate is `complete`,
// `>=<number>` or `scheduled`. The grammar is intentionally minimal; it
// carries no boolean composition and must stay that way.
package unlock

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// Predicate is one node of the requirement AST.
type Predicate interface {
	fmt.Stringer
	predicate()
}

// Complete requires the keyed product to be complete in the ledger, or its
// legacy numeric progress to have reached 100.
type Complete struct{}

// AtLeast requires the keyed product's legacy numeric progress to have
// reached Threshold. The ledger tracks completion only, never partial
// progress, so this predicate always reads the legacy shim.
type AtLeast struct {
	Threshold float64
}

// Scheduled requires a scheduled appointment contract, falling back to the
// historical scheduled flag.
type Scheduled struct{}

func (Complete) predicate()  {}
func (AtLeast) predicate()   {}
func (Scheduled) predicate() {}

func (Complete) String() string { return "complete" }

func (p AtLeast) String() string {
	return ">=" + strconv.FormatFloat(p.Threshold, 'f', -1, 64)
}

func (Scheduled) String() string { return "scheduled" }

// Requirement is one parsed unlock requirement.
type Requirement struct {
	Key       string
	Predicate Predicate
}

// String renders the requirement back into grammar form.
func (r Requirement) String() string {
	return r.Key + ":" + r.Predicate.String()
}

// Parse turns a raw requirement string into its AST. Any malformed input —
// missing separator, empty key, unknown predicate, unparseable threshold —
// is an UNKNOWN_REQUIREMENT_SYNTAX error. Callers that gate unlocks must
// treat that error as locked, never as open.
func Parse(raw string) (Requirement, error) {
	trimmed := strings.TrimSpace(raw)

	key, pred, found := strings.Cut(trimmed, ":")
	if !found {
		return Requirement{}, syntaxError(raw, "missing ':' separator")
	}
	if key == "" {
		return Requirement{}, syntaxError(raw, "empty product key")
	}
	if strings.Contains(pred, ":") {
		return Requirement{}, syntaxError(raw, "more than one ':' separator")
	}

	switch {
	case pred == "complete":
		return Requirement{Key: key, Predicate: Complete{}}, nil
	case pred == "scheduled":
		return Requirement{Key: key, Predicate: Scheduled{}}, nil
	case strings.HasPrefix(pred, ">="):
		threshold, err := strconv.ParseFloat(pred[2:], 64)
		if err != nil {
			return Requirement{}, syntaxError(raw, fmt.Sprintf("threshold %q is not a number", pred[2:]))
		}
		return Requirement{Key: key, Predicate: AtLeast{Threshold: threshold}}, nil
	default:
		return Requirement{}, syntaxError(raw, fmt.Sprintf("unknown predicate %q", pred))
	}
}

func syntaxError(raw, message string) error {
	return domain.NewCoreError(domain.ErrUnknownRequirement, message, fmt.Sprintf("requirement=%q", raw), "")
}
