package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

func flaggedRuleSet() *domain.RuleSet {
	rs := assessmentRuleSet()
	rs.FlagRules = []domain.FlagRule{
		{
			ID:         "wandering_risk",
			Label:      "Wandering risk",
			Severity:   domain.CRITICAL,
			Combinator: domain.AND_COMBINATOR,
			Criteria: []domain.FlagCriterion{
				{QuestionID: "q01", ExpectedValue: "high"},
				{QuestionID: "q02", ExpectedValue: "high"},
			},
		},
		{
			ID:         "daily_support_gap",
			Label:      "Daily support gap",
			Severity:   domain.CAUTION,
			Combinator: domain.OR_COMBINATOR,
			Criteria: []domain.FlagCriterion{
				{QuestionID: "q03", ExpectedValue: "high"},
				{QuestionID: "q04", ExpectedValue: "high"},
			},
		},
	}
	return rs
}

func newFlaggedEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(flaggedRuleSet(), domain.MIDPOINT, testLogger())
	require.NoError(t, err)
	return engine
}

// Every declared rule appears in the output with an explicit Active marker,
// even against an empty answer set. Absence is never a signal.
func TestEvaluateFlagsAlwaysReportsEveryRule(t *testing.T) {
	engine := newFlaggedEngine(t)

	flags := engine.EvaluateFlags(domain.NewAnswerSet())
	require.Len(t, flags, 2)

	byID := map[string]domain.Flag{}
	for _, f := range flags {
		byID[f.ID] = f
	}
	assert.False(t, byID["wandering_risk"].Active)
	assert.False(t, byID["daily_support_gap"].Active)
	assert.Equal(t, domain.CRITICAL, byID["wandering_risk"].Severity)
	assert.Equal(t, domain.CAUTION, byID["daily_support_gap"].Severity)
}

func TestEvaluateFlagsAndCombinator(t *testing.T) {
	engine := newFlaggedEngine(t)

	partial := engine.EvaluateFlags(answersFrom(map[string]string{
		"q01": "high",
	}))
	assert.False(t, partial[0].Active, "and-rule with an unanswered criterion must not fire")

	both := engine.EvaluateFlags(answersFrom(map[string]string{
		"q01": "high",
		"q02": "high",
	}))
	assert.True(t, both[0].Active)

	mismatched := engine.EvaluateFlags(answersFrom(map[string]string{
		"q01": "high",
		"q02": "low",
	}))
	assert.False(t, mismatched[0].Active)
}

func TestEvaluateFlagsOrCombinator(t *testing.T) {
	engine := newFlaggedEngine(t)

	one := engine.EvaluateFlags(answersFrom(map[string]string{
		"q04": "high",
	}))
	assert.True(t, one[1].Active, "or-rule fires on any satisfied criterion")

	none := engine.EvaluateFlags(answersFrom(map[string]string{
		"q03": "low",
		"q04": "none",
	}))
	assert.False(t, none[1].Active)
}

func TestEvaluateFlagsOutputOrderFollowsDeclaration(t *testing.T) {
	engine := newFlaggedEngine(t)

	flags := engine.EvaluateFlags(domain.NewAnswerSet())
	require.Len(t, flags, 2)
	assert.Equal(t, "wandering_risk", flags[0].ID)
	assert.Equal(t, "daily_support_gap", flags[1].ID)
}
