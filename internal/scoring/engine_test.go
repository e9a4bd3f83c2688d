package scoring

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func intPtr(v int) *int { return &v }

// assessmentRuleSet builds a ten-question rule set with the canonical
// four-tier threshold table. Every question offers none/low/medium/high
// worth 0/1/2/4 points.
func assessmentRuleSet() *domain.RuleSet {
	options := func() []domain.AnswerOption {
		return []domain.AnswerOption{
			{Value: "none", Score: 0},
			{Value: "low", Score: 1},
			{Value: "medium", Score: 2},
			{Value: "high", Score: 4},
		}
	}

	var first, second []domain.Question
	for i := 1; i <= 10; i++ {
		q := domain.Question{
			ID:       fmt.Sprintf("q%02d", i),
			Label:    fmt.Sprintf("Need level %d", i),
			Required: true,
			Options:  options(),
		}
		if i <= 5 {
			first = append(first, q)
		} else {
			second = append(second, q)
		}
	}

	return &domain.RuleSet{
		ModuleID: "guided_care_plan",
		Version:  "2024.1",
		Sections: []domain.Section{
			{ID: "daily_living", Questions: first},
			{ID: "health_safety", Questions: second},
		},
		TierThresholds: []domain.TierThreshold{
			{Tier: domain.INDEPENDENT, Min: 0, Max: intPtr(8)},
			{Tier: domain.IN_HOME, Min: 9, Max: intPtr(16)},
			{Tier: domain.ASSISTED_LIVING, Min: 17, Max: intPtr(24)},
			{Tier: domain.MEMORY_CARE, Min: 25},
		},
		FlagRules: []domain.FlagRule{
			{
				ID:         "high_support_need",
				Label:      "High support need",
				Severity:   domain.CAUTION,
				Combinator: domain.OR_COMBINATOR,
				Criteria: []domain.FlagCriterion{
					{QuestionID: "q01", ExpectedValue: "high"},
					{QuestionID: "q02", ExpectedValue: "high"},
				},
			},
		},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(assessmentRuleSet(), domain.MIDPOINT, testLogger())
	require.NoError(t, err)
	return engine
}

func answersFrom(pairs map[string]string) *domain.AnswerSet {
	return domain.NewAnswerSetFrom(pairs)
}

func TestNewEngineRejectsInvalidRuleSet(t *testing.T) {
	rs := assessmentRuleSet()
	rs.TierThresholds[1].Min = 10 // gap between independent and in_home

	engine, err := NewEngine(rs, domain.MIDPOINT, testLogger())
	assert.Nil(t, engine)
	require.Error(t, err)

	coreErr, ok := err.(*domain.CoreError)
	require.True(t, ok, "expected *domain.CoreError, got %T", err)
	assert.Equal(t, domain.ErrRuleSetInvalid, coreErr.Code)
}

func TestScoreSumsSelectedOptions(t *testing.T) {
	engine := newTestEngine(t)

	answers := answersFrom(map[string]string{
		"q01": "high",   // 4
		"q02": "medium", // 2
		"q03": "low",    // 1
		"q04": "none",   // 0
	})

	score, err := engine.Score(answers)
	require.NoError(t, err)
	assert.Equal(t, 7, score)
}

func TestScoreEmptyAnswerSetIsZero(t *testing.T) {
	engine := newTestEngine(t)

	score, err := engine.Score(domain.NewAnswerSet())
	require.NoError(t, err)
	assert.Equal(t, 0, score)
}

func TestScoreRejectsUndeclaredQuestionsAndValues(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Score(answersFrom(map[string]string{"q99": "high"}))
	require.Error(t, err)
	assert.IsType(t, &domain.ValidationError{}, err)

	_, err = engine.Score(answersFrom(map[string]string{"q01": "extreme"}))
	require.Error(t, err)
	assert.IsType(t, &domain.ValidationError{}, err)
}

func TestScoreIsDeterministic(t *testing.T) {
	engine := newTestEngine(t)
	answers := answersFrom(map[string]string{
		"q01": "high",
		"q05": "medium",
		"q09": "low",
	})

	first, err := engine.Score(answers)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := engine.Score(answers)
		require.NoError(t, err)
		assert.Equal(t, first, again)
		assert.Equal(t, engine.Classify(first), engine.Classify(again))
	}
}

func TestScoreMonotonicUnderAddedAnswers(t *testing.T) {
	engine := newTestEngine(t)

	base := map[string]string{
		"q01": "medium",
		"q02": "low",
	}
	baseScore, err := engine.Score(answersFrom(base))
	require.NoError(t, err)

	for _, value := range []string{"none", "low", "medium", "high"} {
		extended := map[string]string{"q03": value}
		for k, v := range base {
			extended[k] = v
		}
		extendedScore, err := engine.Score(answersFrom(extended))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, extendedScore, baseScore,
			"adding an answered question must never decrease the score")
	}
}

func TestClassifyTierBoundaries(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		score int
		want  domain.CareTier
	}{
		{0, domain.INDEPENDENT},
		{8, domain.INDEPENDENT},
		{9, domain.IN_HOME},
		{16, domain.IN_HOME},
		{17, domain.ASSISTED_LIVING},
		{24, domain.ASSISTED_LIVING},
		{25, domain.MEMORY_CARE},
		{40, domain.MEMORY_CARE},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.Classify(tt.score), "score %d", tt.score)
	}
}

func TestClassifyClampsAboveBoundedTopRange(t *testing.T) {
	rs := assessmentRuleSet()
	rs.TierThresholds[3].Max = intPtr(30)
	engine, err := NewEngine(rs, domain.MIDPOINT, testLogger())
	require.NoError(t, err)

	assert.Equal(t, domain.MEMORY_CARE, engine.Classify(31))
	assert.Equal(t, domain.MEMORY_CARE, engine.Classify(100))
}

func TestClassifyOverlapKeepsFirstDeclaredRange(t *testing.T) {
	engine := newTestEngine(t)
	// Mutate after construction to simulate a malformed table that slipped
	// past validation; classification must not crash and the first declared
	// range must win.
	engine.ruleSet.TierThresholds[1].Min = 5

	assert.Equal(t, domain.INDEPENDENT, engine.Classify(6))
}

func TestTierRankingsUseBandPolicy(t *testing.T) {
	engine := newTestEngine(t)

	rankings := engine.TierRankings()
	require.Len(t, rankings, 4)

	assert.Equal(t, domain.TierScore{Tier: domain.INDEPENDENT, Score: 4}, rankings[0])
	assert.Equal(t, domain.TierScore{Tier: domain.IN_HOME, Score: 12}, rankings[1])
	assert.Equal(t, domain.TierScore{Tier: domain.ASSISTED_LIVING, Score: 20}, rankings[2])
	// Open-ended top range collapses to its lower bound.
	assert.Equal(t, domain.TierScore{Tier: domain.MEMORY_CARE, Score: 25}, rankings[3])

	upperEngine, err := NewEngine(assessmentRuleSet(), domain.UPPER, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 8, upperEngine.TierRankings()[0].Score)
	assert.Equal(t, 16, upperEngine.TierRankings()[1].Score)
}
