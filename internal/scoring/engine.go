// Package scoring implements the deterministic assessment scoring engine:
// raw score, tier classification, risk flags, confidence and rationale,
// assembled into immutable care recommendation contracts.
package scoring

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// Engine scores frozen answer sets against one validated rule set. All
// methods are pure over the engine's immutable rule set; identical inputs
// always produce identical outputs.
type Engine struct {
	ruleSet        *domain.RuleSet
	policy         domain.BandPolicy
	rationaleLimit int
	logger         *logrus.Logger
	now            func() time.Time

	questions map[string]questionRef
}

type questionRef struct {
	question *domain.Question
	order    int
}

// DefaultRationaleLimit caps rationale entries when the caller does not ask
// for a specific count.
const DefaultRationaleLimit = 3

// NewEngine validates the rule set and builds an engine for it. A rule set
// that fails validation never produces an engine; this is the load-time
// barrier that keeps malformed rule definitions away from scoring.
func NewEngine(ruleSet *domain.RuleSet, policy domain.BandPolicy, logger *logrus.Logger) (*Engine, error) {
	if ruleSet == nil {
		return nil, domain.NewRuleSetError("", "", "rule set is required")
	}
	if err := ruleSet.Validate(); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = domain.MIDPOINT
	}
	if !policy.IsValid() {
		return nil, fmt.Errorf("new engine: %w", domain.ErrInvalidBandPolicy)
	}

	questions := make(map[string]questionRef)
	for i, q := range ruleSet.Questions() {
		q := q
		questions[q.ID] = questionRef{question: &q, order: i}
	}

	engine := &Engine{
		ruleSet:        ruleSet,
		policy:         policy,
		rationaleLimit: DefaultRationaleLimit,
		logger:         logger,
		now:            time.Now,
		questions:      questions,
	}

	logger.WithFields(logrus.Fields{
		"module_id":      ruleSet.ModuleID,
		"rule_version":   ruleSet.Version,
		"question_count": len(questions),
		"tier_count":     len(ruleSet.TierThresholds),
		"flag_rules":     len(ruleSet.FlagRules),
		"band_policy":    policy.String(),
	}).Info("Initialized scoring engine")

	return engine, nil
}

// RuleSet returns the engine's immutable rule set.
func (e *Engine) RuleSet() *domain.RuleSet {
	return e.ruleSet
}

// BandPolicy returns the configured band policy.
func (e *Engine) BandPolicy() domain.BandPolicy {
	return e.policy
}

// Score sums the scores of every answered question's selected option.
// Unanswered questions contribute zero. An answer naming a question or value
// the rule set never declares is a validation error, not a silent zero;
// answer sets are checked against the schema here rather than read
// defensively.
func (e *Engine) Score(answers *domain.AnswerSet) (int, error) {
	total := 0
	for _, id := range answers.QuestionIDs() {
		value, _ := answers.Answer(id)
		ref, ok := e.questions[id]
		if !ok {
			return 0, domain.NewValidationError("answers", fmt.Sprintf("question %s is not declared by module %s", id, e.ruleSet.ModuleID), id)
		}
		option, ok := ref.question.OptionByValue(value)
		if !ok {
			return 0, domain.NewValidationError("answers", fmt.Sprintf("question %s has no option %q", id, value), value)
		}
		total += option.Score
	}

	e.logger.WithFields(logrus.Fields{
		"module_id": e.ruleSet.ModuleID,
		"answered":  answers.Len(),
		"score":     total,
	}).Debug("Scored answer set")

	return total, nil
}

// Classify maps a raw score onto the tier whose range contains it. Scores
// above every declared range clamp into the last tier. Should two ranges
// ever contain the same score (a malformed threshold table that bypassed
// validation), the first declared range wins and a warning is logged, never
// a crash.
func (e *Engine) Classify(score int) domain.CareTier {
	thresholds := e.ruleSet.TierThresholds
	matched := -1
	for i, tt := range thresholds {
		if !tt.Contains(score) {
			continue
		}
		if matched >= 0 {
			e.logger.WithFields(logrus.Fields{
				"module_id": e.ruleSet.ModuleID,
				"score":     score,
				"kept":      thresholds[matched].Tier.String(),
				"shadowed":  tt.Tier.String(),
			}).Warn("Overlapping tier thresholds, keeping first declared range")
			continue
		}
		matched = i
	}
	if matched < 0 {
		// Above every declared range: clamp into the highest tier.
		matched = len(thresholds) - 1
	}
	return thresholds[matched].Tier
}

// TierRankings returns every declared tier with the representative value of
// its score range under the engine's band policy, in declaration order.
func (e *Engine) TierRankings() []domain.TierScore {
	rankings := make([]domain.TierScore, 0, len(e.ruleSet.TierThresholds))
	for _, tt := range e.ruleSet.TierThresholds {
		rankings = append(rankings, domain.TierScore{
			Tier:  tt.Tier,
			Score: tt.Representative(e.policy),
		})
	}
	return rankings
}
