package relationship

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCooccurrenceSymmetry(t *testing.T) {
	co := ComputeCooccurrences(map[string][]int64{"a1": {1, 2}})

	assert.Equal(t, 1, co.Count(1, 2))
	assert.Equal(t, 1, co.Count(2, 1))
	assert.Equal(t, 0, co.Count(1, 1))
}

func TestCooccurrenceCountsAnalysesOnce(t *testing.T) {
	co := ComputeCooccurrences(map[string][]int64{
		"a1": {1, 2, 2, 1, 3},
		"a2": {2, 1},
		"a3": {3},
	})

	assert.Equal(t, 2, co.Count(1, 2))
	assert.Equal(t, 1, co.Count(1, 3))
	assert.Equal(t, 1, co.Count(3, 2))
	for a, others := range co {
		for b, n := range others {
			assert.Equal(t, n, co.Count(b, a), "pair %d-%d", a, b)
		}
	}
}

func TestStrengthThresholds(t *testing.T) {
	tests := []struct {
		count int
		want  model.Strength
	}{
		{0, model.StrengthVeryWeak},
		{1, model.StrengthVeryWeak},
		{2, model.StrengthWeak},
		{4, model.StrengthWeak},
		{5, model.StrengthModerate},
		{9, model.StrengthModerate},
		{10, model.StrengthStrong},
		{19, model.StrengthStrong},
		{20, model.StrengthVeryStrong},
		{500, model.StrengthVeryStrong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StrengthFor(tt.count), "count %d", tt.count)
	}
}

func TestRecommendRelated(t *testing.T) {
	co := ComputeCooccurrences(map[string][]int64{
		"a1": {1, 2, 3},
		"a2": {1, 2, 4},
		"a3": {1, 5},
		"a4": {2, 5},
		"a5": {2, 3},
	})

	got := RecommendRelated(co, []int64{1, 2}, 10)
	// 3: 1+2, 5: 1+1, 4: 1+1
	assert.Equal(t, []Recommendation{
		{KeywordID: 3, Score: 3, Seeds: 2},
		{KeywordID: 4, Score: 2, Seeds: 2},
		{KeywordID: 5, Score: 2, Seeds: 2},
	}, got)

	assert.Len(t, RecommendRelated(co, []int64{1, 2}, 1), 1)
	assert.Empty(t, RecommendRelated(co, []int64{1, 2}, 0))
	assert.Empty(t, RecommendRelated(co, []int64{42}, 5))
}

func TestRecommendationStrengthOnlyForSinglePairs(t *testing.T) {
	groups := make(map[string][]int64)
	for i := 0; i < 6; i++ {
		groups[fmt.Sprintf("a%d", i)] = []int64{1, 2, 3}
	}
	co := ComputeCooccurrences(groups)

	single := RecommendRelated(co, []int64{1}, 10)
	require.Len(t, single, 2)
	for _, r := range single {
		assert.Equal(t, 6, r.Score)
		strength, ok := r.Strength()
		assert.True(t, ok)
		assert.Equal(t, StrengthFor(6), strength)
	}

	// 3 pairs with both 1 and 2 six times each; 12 is not a pair count.
	multi := RecommendRelated(co, []int64{1, 2}, 10)
	require.Len(t, multi, 1)
	assert.Equal(t, Recommendation{KeywordID: 3, Score: 12, Seeds: 2}, multi[0])
	_, ok := multi[0].Strength()
	assert.False(t, ok)
}

func seedFeedback(t *testing.T, s *store.MemoryStore, groups map[string][]int64) {
	t.Helper()
	for analysis, ids := range groups {
		for _, id := range ids {
			require.NoError(t, s.RecordFeedback(context.Background(), model.FeedbackRecord{
				ID: uuid.New(), AnalysisID: analysis, KeywordID: id, Verdict: model.VerdictConfirmed,
			}))
		}
	}
}

func TestPersistRelationshipsAppliesThreshold(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	seedFeedback(t, mem, map[string][]int64{
		"a1": {1, 2, 3},
		"a2": {1, 2},
		"a3": {2, 1},
	})
	require.NoError(t, mem.RecordFeedback(ctx, model.FeedbackRecord{ID: uuid.New(), AnalysisID: "a4", KeywordID: 3, Verdict: model.VerdictRejected}))

	a := NewAnalyzer(mem, 2, discardLogger())
	n, err := a.PersistRelationships(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rels, err := mem.AllRelationships(ctx)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, int64(1), rels[0].KeywordA)
	assert.Equal(t, int64(2), rels[0].KeywordB)
	assert.Equal(t, 3, rels[0].Count)
	assert.Equal(t, model.StrengthWeak, rels[0].Strength)
}

func TestPersistRelationshipsReplacesCounts(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	seedFeedback(t, mem, map[string][]int64{"a1": {1, 2}, "a2": {1, 2}})
	a := NewAnalyzer(mem, 0, discardLogger())

	require.NoError(t, a.Run(ctx))
	require.NoError(t, a.Run(ctx))

	rels, err := mem.AllRelationships(ctx)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, 2, rels[0].Count, "rebuild must not accumulate")
}

type brokenFeedback struct{ *store.MemoryStore }

func (brokenFeedback) ConfirmedMatchesByAnalysis(context.Context) (map[string][]int64, error) {
	return nil, errors.New("db down")
}

func TestPersistRelationshipsPropagatesLoadError(t *testing.T) {
	a := NewAnalyzer(brokenFeedback{store.NewMemoryStore()}, 2, discardLogger())
	_, err := a.PersistRelationships(context.Background(), 2)
	assert.ErrorContains(t, err, "load confirmed matches")
}
