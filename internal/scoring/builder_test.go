package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

func TestBuildRecommendationAssemblesFullContract(t *testing.T) {
	engine := newTestEngine(t)
	engine.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	answers := answersFrom(map[string]string{
		"q01": "high", "q02": "high", "q03": "high", "q04": "high", "q05": "high",
		"q06": "none", "q07": "none", "q08": "none", "q09": "none", "q10": "none",
	})

	rec, err := engine.BuildRecommendation(answers, 3)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "guided_care_plan", rec.ModuleID)
	assert.Equal(t, domain.ASSISTED_LIVING, rec.Tier)
	assert.Equal(t, 20, rec.TierScore)
	assert.InDelta(t, 1.0, rec.Confidence, 1e-9)
	assert.Len(t, rec.TierRankings, 4)
	assert.Len(t, rec.Flags, 1)
	assert.True(t, rec.Flags[0].Active) // q01 or q02 answered high
	assert.Len(t, rec.Rationale, 3)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), rec.GeneratedAt)
	assert.Equal(t, "2024.1", rec.RuleVersion)
	assert.Equal(t, answers.Fingerprint(), rec.InputFingerprint)

	assert.True(t, answers.Frozen(), "building must freeze the answer set")
}

func TestBuildRecommendationIsAtomicOnBadAnswers(t *testing.T) {
	engine := newTestEngine(t)

	rec, err := engine.BuildRecommendation(answersFrom(map[string]string{
		"q01": "not_a_declared_value",
	}), 3)

	assert.Nil(t, rec, "no partial contract may be emitted")
	require.Error(t, err)
}

func TestBuildRecommendationWithEmptyAnswersStillPublishes(t *testing.T) {
	engine := newTestEngine(t)

	rec, err := engine.BuildRecommendation(domain.NewAnswerSet(), 3)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// Best effort: zero answers means floor confidence, never a refusal.
	assert.Equal(t, domain.INDEPENDENT, rec.Tier)
	assert.Equal(t, 0, rec.TierScore)
	assert.InDelta(t, 0.5, rec.Confidence, 1e-9)
	assert.Len(t, rec.Flags, 1)
	assert.False(t, rec.Flags[0].Active)
	assert.Empty(t, rec.Rationale)
}

func TestBuildRecommendationIdenticalInputsShareFingerprint(t *testing.T) {
	engine := newTestEngine(t)

	first, err := engine.BuildRecommendation(answersFrom(map[string]string{
		"q01": "high", "q02": "medium",
	}), 3)
	require.NoError(t, err)

	second, err := engine.BuildRecommendation(answersFrom(map[string]string{
		"q02": "medium", "q01": "high",
	}), 3)
	require.NoError(t, err)

	assert.Equal(t, first.InputFingerprint, second.InputFingerprint)
	assert.NotEqual(t, first.ID, second.ID, "every build publishes a brand-new contract")
	assert.Equal(t, first.Tier, second.Tier)
	assert.Equal(t, first.TierScore, second.TierScore)
}

func TestBuildRecommendationRequiresAnswerSet(t *testing.T) {
	engine := newTestEngine(t)

	rec, err := engine.BuildRecommendation(nil, 3)
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.IsType(t, &domain.ValidationError{}, err)
}
