package unlock

import (
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// legacyCompleteProgress is the legacy progress value that counts as
// complete under the compatibility shim.
const legacyCompleteProgress = 100

// PanelState is the slice of the session panel the evaluator reads. The
// session context satisfies it; keys are normalized inside the panel, so the
// evaluator never touches raw aliases itself.
type PanelState interface {
	IsComplete(rawKey string) bool
	LegacyProgress(rawKey string) (float64, bool)
	Appointment() (*domain.Appointment, bool)
	LegacyScheduled() bool
}

// Evaluator decides whether unlock requirements hold against a session
// panel. Malformed requirements evaluate to locked: an ambiguous unlock
// state must never unlock a dependent product.
type Evaluator struct {
	panel  PanelState
	logger *logrus.Logger
}

// NewEvaluator creates an evaluator over one session's panel state.
func NewEvaluator(panel PanelState, logger *logrus.Logger) *Evaluator {
	return &Evaluator{panel: panel, logger: logger}
}

// Evaluate parses and evaluates a raw requirement string. Parse failures are
// logged and reported as false, never surfaced as errors.
func (e *Evaluator) Evaluate(raw string) bool {
	req, err := Parse(raw)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"requirement": raw,
			"error":       err.Error(),
		}).Warn("Malformed unlock requirement, evaluating to locked")
		return false
	}
	return e.EvaluateRequirement(req)
}

// EvaluateRequirement evaluates a parsed requirement.
func (e *Evaluator) EvaluateRequirement(req Requirement) bool {
	switch pred := req.Predicate.(type) {
	case Complete:
		if e.panel.IsComplete(req.Key) {
			return true
		}
		// Legacy shim: older surfaces report numeric progress instead of
		// marking the ledger.
		progress, ok := e.panel.LegacyProgress(req.Key)
		return ok && progress >= legacyCompleteProgress
	case AtLeast:
		progress, ok := e.panel.LegacyProgress(req.Key)
		return ok && progress >= pred.Threshold
	case Scheduled:
		if appt, ok := e.panel.Appointment(); ok {
			return appt.IsScheduled()
		}
		return e.panel.LegacyScheduled()
	default:
		e.logger.WithField("requirement", req.String()).Warn("Unknown predicate type, evaluating to locked")
		return false
	}
}
