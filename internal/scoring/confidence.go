package scoring

import (
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// Confidence weights. Completeness dominates boundary clarity 60/40; three
// or more points from either tier edge counts as maximally clear.
const (
	completenessWeight  = 0.6
	boundaryWeight      = 0.4
	boundaryClearPoints = 3.0
	confidenceFloor     = 0.5
)

// Confidence blends required-answer completeness with the score's distance
// from its tier boundaries into a value in [0.5, 1.0]. The floor is a
// product rule: the system never reports below 50% so a best-effort
// recommendation is never presented as worthless.
func (e *Engine) Confidence(answers *domain.AnswerSet, score int) float64 {
	completeness := e.completeness(answers)
	boundary := e.boundaryConfidence(score)

	confidence := completeness*completenessWeight + boundary*boundaryWeight
	if confidence < confidenceFloor {
		confidence = confidenceFloor
	}

	e.logger.WithFields(logrus.Fields{
		"module_id":           e.ruleSet.ModuleID,
		"score":               score,
		"completeness":        completeness,
		"boundary_confidence": boundary,
		"confidence":          confidence,
	}).Debug("Calculated recommendation confidence")

	return confidence
}

// completeness is the answered share of required questions. Optional
// questions count toward neither side. A rule set with no required
// questions is trivially complete.
func (e *Engine) completeness(answers *domain.AnswerSet) float64 {
	required := 0
	answered := 0
	for _, q := range e.ruleSet.Questions() {
		if !q.Required {
			continue
		}
		required++
		if _, ok := answers.Answer(q.ID); ok {
			answered++
		}
	}
	if required == 0 {
		return 1.0
	}
	return float64(answered) / float64(required)
}

// boundaryConfidence measures how far the score sits from the edges of its
// tier range. A score pinned to a boundary scores zero; an open-ended top
// range only has a lower edge to measure from. Scores clamped in from above
// a bounded top range also score zero.
func (e *Engine) boundaryConfidence(score int) float64 {
	threshold, ok := e.ruleSet.ThresholdFor(score)
	if !ok {
		return 0
	}

	distance := float64(score - threshold.Min)
	if threshold.Max != nil {
		upper := float64(*threshold.Max - score)
		if upper < distance {
			distance = upper
		}
	}

	return clamp(distance/boundaryClearPoints, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
