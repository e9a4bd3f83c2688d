package scoring

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// BuildRecommendation runs the full scoring pipeline over a frozen answer
// set and assembles one immutable care recommendation. The build is atomic:
// if any step fails, no contract is emitted. Missing required answers are
// not a failure; they lower confidence and the build still produces a
// best-effort recommendation.
func (e *Engine) BuildRecommendation(answers *domain.AnswerSet, topN int) (*domain.CareRecommendation, error) {
	if answers == nil {
		return nil, domain.NewValidationError("answers", "answer set is required", nil)
	}
	answers.Freeze()

	score, err := e.Score(answers)
	if err != nil {
		return nil, fmt.Errorf("build recommendation: %w", err)
	}

	tier := e.Classify(score)
	confidence := e.Confidence(answers, score)

	rec := &domain.CareRecommendation{
		ID:               uuid.New().String(),
		ModuleID:         e.ruleSet.ModuleID,
		Tier:             tier,
		TierScore:        score,
		TierRankings:     e.TierRankings(),
		Confidence:       confidence,
		Flags:            e.EvaluateFlags(answers),
		Rationale:        e.Rationale(answers, topN),
		GeneratedAt:      e.now().UTC(),
		RuleVersion:      e.ruleSet.Version,
		InputFingerprint: answers.Fingerprint(),
	}

	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("build recommendation: %w", err)
	}

	e.logger.WithFields(logrus.Fields(rec.LogFields())).Info("Built care recommendation")

	return rec, nil
}
