package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/scorer"
	"github.com/amishk599/keymatch/internal/store"
	"github.com/amishk599/keymatch/internal/taxonomy"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t *testing.T, keywords []model.Keyword, rules []model.MatchingRule) *taxonomy.Cache {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemoryStore()
	for i := range keywords {
		require.NoError(t, mem.UpsertKeyword(ctx, &keywords[i]))
	}
	for i := range rules {
		require.NoError(t, mem.AddMatchingRule(ctx, &rules[i]))
	}
	return taxonomy.NewCache(mem, time.Minute, discardLogger())
}

func pythonOnly() []model.Keyword {
	return []model.Keyword{{
		Text:              "python",
		Category:          "programming",
		Priority:          model.PriorityCritical,
		Difficulty:        model.DifficultyAdvanced,
		IndustryRelevance: map[string]float64{"Technology": 0.9},
		BaseConfidence:    1.0,
	}}
}

func techKeywords() []model.Keyword {
	return []model.Keyword{
		{Text: "python", Priority: model.PriorityCritical, Difficulty: model.DifficultyAdvanced, Synonyms: []string{"py"}, BaseConfidence: 1},
		{Text: "docker", Priority: model.PriorityImportant, Difficulty: model.DifficultyIntermediate, BaseConfidence: 1},
		{Text: "kubernetes", Priority: model.PriorityImportant, Difficulty: model.DifficultyAdvanced, Synonyms: []string{"k8s"}, BaseConfidence: 1},
		{Text: "react", Priority: model.PriorityMedium, Difficulty: model.DifficultyIntermediate, BaseConfidence: 1},
		{Text: "machine learning", Priority: model.PriorityImportant, Difficulty: model.DifficultyExpert, BaseConfidence: 1},
		{Text: "sql", Priority: model.PriorityMedium, Difficulty: model.DifficultyBeginner, BaseConfidence: 1},
	}
}

func newTestPipeline(t *testing.T, keywords []model.Keyword, rules []model.MatchingRule) *Pipeline {
	t.Helper()
	return NewPipeline(newTestCache(t, keywords, rules), scorer.New(scorer.DefaultWeights()), DefaultOptions(), discardLogger())
}

type failingSource struct{}

func (failingSource) Snapshot(context.Context) (*taxonomy.Snapshot, error) {
	return nil, &model.LookupError{Op: "all keywords", Err: errors.New("connection refused")}
}

func TestExtractPythonScenario(t *testing.T) {
	p := newTestPipeline(t, pythonOnly(), nil)
	opts := DefaultOptions()
	opts.Industry = "Technology"

	got := p.Extract(context.Background(), "I have 5 years of Python experience.", opts)
	require.Len(t, got, 1)
	assert.Equal(t, "python", got[0].Keyword.Text)
	assert.Equal(t, model.MethodExact, got[0].Method)
	assert.InDelta(t, 1.0, got[0].Confidence, 1e-9)
	assert.InDelta(t, 0.975, got[0].Score, 1e-9)
}

func TestExtractIsDeterministic(t *testing.T) {
	p := newTestPipeline(t, techKeywords(), nil)
	text := "Python developer with Docker, k8s, React and SQL. Some machine learning."

	first := p.Extract(context.Background(), text, DefaultOptions())
	second := p.Extract(context.Background(), text, DefaultOptions())
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestExtractTruncation(t *testing.T) {
	p := newTestPipeline(t, techKeywords(), nil)
	text := "python docker kubernetes react machine learning sql"

	for k := 0; k <= 7; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			opts := DefaultOptions()
			opts.MaxResults = k
			got := p.Extract(context.Background(), text, opts)
			assert.LessOrEqual(t, len(got), k)
			if k == 0 {
				assert.Empty(t, got)
			}
		})
	}
}

func TestExtractDeduplicatesByKeyword(t *testing.T) {
	p := newTestPipeline(t, techKeywords(), nil)

	got := p.Extract(context.Background(), "python Python py pythn docker docker", DefaultOptions())
	ids := make(map[int64]bool)
	for _, rk := range got {
		assert.False(t, ids[rk.Keyword.ID], "duplicate keyword %s", rk.Keyword.Text)
		ids[rk.Keyword.ID] = true
	}
	require.Len(t, got, 2)
	assert.Equal(t, "python", got[0].Keyword.Text)
	assert.Equal(t, model.MethodExact, got[0].Method, "first occurrence wins")
}

func TestExtractSortedAndBounded(t *testing.T) {
	p := newTestPipeline(t, techKeywords(), nil)

	got := p.Extract(context.Background(), "sql react docker python kubernetes machine learning", DefaultOptions())
	require.Len(t, got, 6)
	for i, rk := range got {
		assert.GreaterOrEqual(t, rk.Score, 0.0)
		assert.LessOrEqual(t, rk.Score, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Score, rk.Score)
		}
	}
	assert.Equal(t, "python", got[0].Keyword.Text)
	assert.Equal(t, "machine learning", got[1].Keyword.Text)
}

func TestExtractMinScore(t *testing.T) {
	p := newTestPipeline(t, techKeywords(), nil)
	opts := DefaultOptions()
	opts.MinScore = 0.9

	got := p.Extract(context.Background(), "python and sql", opts)
	require.Len(t, got, 1)
	assert.Equal(t, "python", got[0].Keyword.Text)
}

func TestExtractAppliesMatchingRules(t *testing.T) {
	keywords := techKeywords()
	p := newTestPipeline(t, keywords, []model.MatchingRule{
		{Pattern: "python[version]", Type: model.MatchVersionVariant, KeywordID: 1, Confidence: 0.9},
	})

	got := p.Extract(context.Background(), "Scripting in python3.", DefaultOptions())
	require.Len(t, got, 1)
	assert.Equal(t, "python", got[0].Keyword.Text)
	assert.Equal(t, model.MethodMatchingRule, got[0].Method)
	assert.Equal(t, "python3", got[0].MatchedText)
}

func TestExtractSeesWritesThroughCache(t *testing.T) {
	cache := newTestCache(t, pythonOnly(), nil)
	p := NewPipeline(cache, scorer.New(scorer.DefaultWeights()), DefaultOptions(), discardLogger())
	ctx := context.Background()

	assert.Len(t, p.Extract(ctx, "python and golang", DefaultOptions()), 1)

	require.NoError(t, cache.UpsertKeyword(ctx, &model.Keyword{Text: "golang", Priority: model.PriorityCritical, Difficulty: model.DifficultyIntermediate, BaseConfidence: 1}))
	assert.Len(t, p.Extract(ctx, "python and golang", DefaultOptions()), 2)
}

func TestExtractFailsOpenOnLookupError(t *testing.T) {
	p := NewPipeline(failingSource{}, scorer.New(scorer.DefaultWeights()), DefaultOptions(), discardLogger())

	got := p.Extract(context.Background(), "python", DefaultOptions())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExtractBatchPreservesOrder(t *testing.T) {
	p := newTestPipeline(t, techKeywords(), nil)
	texts := []string{"python", "docker", "", "react and sql"}

	got, err := p.ExtractBatch(context.Background(), texts, DefaultOptions(), 2)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, text := range texts {
		assert.Equal(t, p.Extract(context.Background(), text, DefaultOptions()), got[i], "text %d", i)
	}
}

func TestExtractBatchCancelled(t *testing.T) {
	p := newTestPipeline(t, techKeywords(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ExtractBatch(ctx, []string{"python", "docker"}, DefaultOptions(), 1)
	assert.ErrorIs(t, err, context.Canceled)
}
