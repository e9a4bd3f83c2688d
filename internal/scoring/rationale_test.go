package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

func labeledRuleSet() *domain.RuleSet {
	return &domain.RuleSet{
		ModuleID: "guided_care_plan",
		Version:  "2024.1",
		Sections: []domain.Section{
			{
				ID: "daily_living",
				Questions: []domain.Question{
					{
						ID: "bathing", Label: "Bathing", Required: true,
						Options: []domain.AnswerOption{
							{Value: "none", Score: 0},
							{Value: "full", Label: "Needs full assistance with bathing", Score: 4},
						},
					},
					{
						ID: "meals", Label: "Meal preparation", Required: true,
						Options: []domain.AnswerOption{
							{Value: "none", Score: 0},
							{Value: "some", Score: 2}, // no option label, falls back to question label
						},
					},
					{
						ID: "mobility", Label: "Mobility", Required: true,
						Options: []domain.AnswerOption{
							{Value: "steady", Score: 0},
							{Value: "walker", Label: "Uses a walker", Score: 2},
							{Value: "falls", Label: "Recent falls", Score: 4},
						},
					},
				},
			},
		},
		TierThresholds: []domain.TierThreshold{
			{Tier: domain.INDEPENDENT, Min: 0, Max: intPtr(4)},
			{Tier: domain.IN_HOME, Min: 5},
		},
	}
}

func TestRationaleRanksByContributedScore(t *testing.T) {
	engine, err := NewEngine(labeledRuleSet(), domain.MIDPOINT, testLogger())
	require.NoError(t, err)

	answers := answersFrom(map[string]string{
		"bathing":  "full",   // 4
		"meals":    "some",   // 2
		"mobility": "walker", // 2
	})

	rationale := engine.Rationale(answers, 3)
	require.Len(t, rationale, 3)
	assert.Equal(t, "Needs full assistance with bathing", rationale[0])
	// 2-point tie broken by declaration order: meals before mobility.
	assert.Equal(t, "Meal preparation: some", rationale[1])
	assert.Equal(t, "Uses a walker", rationale[2])
}

func TestRationaleHonorsTopN(t *testing.T) {
	engine, err := NewEngine(labeledRuleSet(), domain.MIDPOINT, testLogger())
	require.NoError(t, err)

	answers := answersFrom(map[string]string{
		"bathing":  "full",
		"meals":    "some",
		"mobility": "falls",
	})

	top2 := engine.Rationale(answers, 2)
	require.Len(t, top2, 2)
	assert.Equal(t, "Needs full assistance with bathing", top2[0])
	assert.Equal(t, "Recent falls", top2[1])

	// Non-positive topN falls back to the engine default.
	withDefault := engine.Rationale(answers, 0)
	assert.Len(t, withDefault, 3)
}

func TestRationaleSkipsZeroScoreAndUnansweredQuestions(t *testing.T) {
	engine, err := NewEngine(labeledRuleSet(), domain.MIDPOINT, testLogger())
	require.NoError(t, err)

	answers := answersFrom(map[string]string{
		"bathing":  "none", // zero contribution
		"mobility": "falls",
	})

	rationale := engine.Rationale(answers, 5)
	require.Len(t, rationale, 1)
	assert.Equal(t, "Recent falls", rationale[0])

	assert.Empty(t, engine.Rationale(domain.NewAnswerSet(), 5))
}
