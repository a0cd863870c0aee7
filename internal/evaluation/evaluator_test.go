package evaluation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debatearena/debatearena/internal/models"
)

func newArgument(speaker string, stance models.Stance, round int, text string) *models.Argument {
	return &models.Argument{Speaker: speaker, Stance: stance, Round: round, Text: text}
}

const strongText = "First, research data shows that adoption lowers costs. " +
	"For example, a pilot program cut expenses. Therefore we must act now, together, for the future."

func TestEvaluateDeterministic(t *testing.T) {
	e := NewEvaluator(nil)
	arg := newArgument("alice", models.StanceSupport, 1, strongText)

	first := e.Evaluate(arg, nil, "adoption of renewable energy")

	// A second evaluator must reproduce the identical result; no randomness
	// anywhere in the scoring path.
	second := NewEvaluator(nil).Evaluate(arg, nil, "adoption of renewable energy")
	assert.Equal(t, first.OverallScore, second.OverallScore)
	for _, dim := range AllDimensions() {
		assert.Equal(t, first.Scores[dim], second.Scores[dim], "dimension %s", dim)
	}
}

func TestEvaluateCachesResult(t *testing.T) {
	e := NewEvaluator(nil)
	arg := newArgument("alice", models.StanceSupport, 1, strongText)

	first := e.Evaluate(arg, nil, "topic")
	second := e.Evaluate(arg, nil, "topic")
	assert.Same(t, first, second)
}

func TestEvaluateAccountsForContext(t *testing.T) {
	e := NewEvaluator(nil)
	arg := newArgument("alice", models.StanceSupport, 2, strongText)

	fresh := e.Evaluate(arg, nil, "adoption of renewable energy")

	// The same text repeated verbatim by an earlier speaker must drag
	// originality down; a context change may not serve a stale cache entry.
	duplicate := newArgument("bob", models.StanceOppose, 1, strongText)
	repeated := e.Evaluate(arg, []*models.Argument{duplicate}, "adoption of renewable energy")

	assert.NotSame(t, fresh, repeated)
	assert.Less(t, repeated.Scores[Originality].Score, fresh.Scores[Originality].Score)
}

func TestEvaluateScoresWithinBounds(t *testing.T) {
	e := NewEvaluator(nil)
	texts := []string{
		"",
		"short",
		strongText,
		"you are wrong and always lying, all of it, absolutely everything, never right",
	}
	for i, text := range texts {
		arg := newArgument("bob", models.StanceOppose, 1, text)
		eval := e.Evaluate(arg, nil, "some topic")
		require.Len(t, eval.Scores, len(AllDimensions()))
		assert.GreaterOrEqual(t, eval.OverallScore, 0.0, "case %d", i)
		assert.LessOrEqual(t, eval.OverallScore, 1.0, "case %d", i)
		for dim, s := range eval.Scores {
			assert.GreaterOrEqual(t, s.Score, 0.0, "case %d dim %s", i, dim)
			assert.LessOrEqual(t, s.Score, 1.0, "case %d dim %s", i, dim)
		}
	}
}

func TestEvidenceQualityRewardsEvidence(t *testing.T) {
	e := NewEvaluator(nil)

	bare := e.Evaluate(newArgument("a", models.StanceSupport, 1, "it is simply better"), nil, "topic")
	backed := newArgument("b", models.StanceSupport, 1, "it is simply better")
	backed.Evidence = []string{"research from the national institute", "statistics from 2024"}
	withEvidence := e.Evaluate(backed, nil, "topic")

	assert.Greater(t, withEvidence.Scores[EvidenceQuality].Score, bare.Scores[EvidenceQuality].Score)
	assert.Equal(t, 0.3, bare.Scores[EvidenceQuality].Score)
}

func TestFallaciesLowerCoherence(t *testing.T) {
	e := NewEvaluator(nil)

	clean := e.Evaluate(newArgument("a", models.StanceSupport, 1,
		"the proposal reduces costs and improves outcomes"), nil, "topic")
	sloppy := e.Evaluate(newArgument("b", models.StanceSupport, 1,
		"you are wrong, it never works, absolutely everyone knows that"), nil, "topic")

	assert.Greater(t, clean.Scores[LogicalCoherence].Score, sloppy.Scores[LogicalCoherence].Score)
}

func TestOriginalityPenalizesRepetition(t *testing.T) {
	e := NewEvaluator(nil)
	prev := newArgument("a", models.StanceSupport, 1, "solar power is the cheapest energy source available today")
	echo := newArgument("b", models.StanceOppose, 1, "solar power is the cheapest energy source available today")
	fresh := newArgument("c", models.StanceOppose, 1, "grid storage limits undermine intermittent generation at scale")

	context := []*models.Argument{prev}
	echoScore := e.Evaluate(echo, context, "solar").Scores[Originality].Score
	freshScore := e.Evaluate(fresh, context, "solar").Scores[Originality].Score
	assert.Greater(t, freshScore, echoScore)
}

func TestRelevanceRewardsTopicKeywords(t *testing.T) {
	e := NewEvaluator(nil)
	topic := "universal basic income"

	onTopic := e.Evaluate(newArgument("a", models.StanceSupport, 1,
		"universal basic income reduces poverty because basic income is unconditional"), nil, topic)
	offTopic := e.Evaluate(newArgument("b", models.StanceSupport, 1,
		"my favorite dessert recipe involves caramel and patience"), nil, topic)

	assert.Greater(t, onTopic.Scores[Relevance].Score, offTopic.Scores[Relevance].Score)
}

func TestWeaknessesAndSuggestions(t *testing.T) {
	e := NewEvaluator(nil)
	eval := e.Evaluate(newArgument("a", models.StanceSupport, 1, "no"), nil, "topic")

	assert.NotEmpty(t, eval.Weaknesses)
	assert.NotEmpty(t, eval.Suggestions)
}

func TestJudgeDebatePicksHigherScoringTeam(t *testing.T) {
	judge := NewJudge(NewEvaluator(nil), nil)

	support := []*models.Argument{
		newArgument("alice", models.StanceSupport, 1, strongText),
		newArgument("alice", models.StanceSupport, 2, "Second, statistics indicate adoption improves reliability. For instance, outages dropped."),
	}
	oppose := []*models.Argument{
		newArgument("bob", models.StanceOppose, 1, "no"),
		newArgument("bob", models.StanceOppose, 2, "bad idea"),
	}

	verdict := judge.JudgeDebate(support, oppose, "adoption of renewable energy")
	assert.Equal(t, models.StanceSupport, verdict.Winner)
	assert.Greater(t, verdict.SupportScores["overall"], verdict.OpposeScores["overall"])
	assert.NotEmpty(t, verdict.Analysis)
}

func TestJudgeDebateEmptyTeams(t *testing.T) {
	judge := NewJudge(NewEvaluator(nil), nil)
	verdict := judge.JudgeDebate(nil, nil, "topic")

	assert.Equal(t, models.StanceNeutral, verdict.Winner)
	assert.Zero(t, verdict.SupportScores["overall"])
	assert.Zero(t, verdict.OpposeScores["overall"])
}

func TestDimensionWeightsCoverAllDimensions(t *testing.T) {
	weights := DimensionWeights()
	for _, dim := range AllDimensions() {
		w, ok := weights[dim]
		require.True(t, ok, "missing weight for %s", dim)
		assert.Greater(t, w, 0.0)
	}
}

func TestCacheKeyDistinguishesInputs(t *testing.T) {
	base := newArgument("a", models.StanceSupport, 1, "text")
	keys := map[uint64]string{cacheKey(base, nil, "topic"): "base"}

	variants := []*models.Argument{
		newArgument("b", models.StanceSupport, 1, "text"),
		newArgument("a", models.StanceSupport, 2, "text"),
		newArgument("a", models.StanceSupport, 1, "other"),
	}
	for i, v := range variants {
		k := cacheKey(v, nil, "topic")
		_, clash := keys[k]
		assert.False(t, clash, "variant %d collided", i)
		keys[k] = fmt.Sprintf("variant %d", i)
	}
	_, clash := keys[cacheKey(base, nil, "other topic")]
	assert.False(t, clash)
}
