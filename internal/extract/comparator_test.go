package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/scorer"
)

func identities(rks []model.RankedKeyword) map[string]bool {
	out := make(map[string]bool, len(rks))
	for _, rk := range rks {
		out[rk.Identity()] = true
	}
	return out
}

func TestCompareEmptyResumeReportsJobKeywordsMissing(t *testing.T) {
	p := newTestPipeline(t, techKeywords(), nil)
	c := NewComparator(p, 30, discardLogger())
	ctx := context.Background()

	got := c.Compare(ctx, "", "Python developer needed")
	assert.Equal(t, 0.0, got.MatchScore)
	assert.Empty(t, got.Found)
	assert.Equal(t, p.Extract(ctx, "Python developer needed", c.opts), got.Missing)
	require.Len(t, got.Missing, 1)
	assert.Equal(t, MethodEmpty, got.Method)
}

func TestCompareBlankJob(t *testing.T) {
	c := NewComparator(newTestPipeline(t, techKeywords(), nil), 30, discardLogger())

	got := c.Compare(context.Background(), "python and docker", "   \n\t")
	assert.Equal(t, 0.0, got.MatchScore)
	assert.Empty(t, got.Found)
	assert.Empty(t, got.Missing)
}

func TestCompareSetAlgebra(t *testing.T) {
	p := newTestPipeline(t, techKeywords(), nil)
	c := NewComparator(p, 30, discardLogger())
	ctx := context.Background()
	resume := "Python and Docker on Kubernetes"
	job := "Python, Kubernetes and React developer"

	got := c.Compare(ctx, resume, job)
	r := identities(p.Extract(ctx, resume, c.opts))
	j := identities(p.Extract(ctx, job, c.opts))

	for id := range identities(got.Found) {
		assert.True(t, r[id], "found %s not in resume", id)
		assert.True(t, j[id], "found %s not in job", id)
	}
	missing := identities(got.Missing)
	for id := range missing {
		assert.True(t, j[id])
		assert.False(t, r[id])
	}
	assert.Equal(t, len(j), len(got.Found)+len(got.Missing))

	var found []string
	for _, rk := range got.Found {
		found = append(found, rk.Keyword.Text)
	}
	assert.ElementsMatch(t, []string{"python", "kubernetes"}, found)
	require.Len(t, got.Missing, 1)
	assert.Equal(t, "react", got.Missing[0].Keyword.Text)

	assert.Equal(t, MethodTFIDF, got.Method)
	assert.Greater(t, got.MatchScore, 0.0)
	assert.Less(t, got.MatchScore, 100.0)
}

func TestCompareIdenticalDocuments(t *testing.T) {
	c := NewComparator(newTestPipeline(t, techKeywords(), nil), 30, discardLogger())
	text := "Senior Python engineer building Docker images"

	got := c.Compare(context.Background(), text, text)
	assert.Equal(t, 100.0, got.MatchScore)
	assert.Empty(t, got.Missing)
}

func TestCompareFallsBackToWordOverlap(t *testing.T) {
	c := NewComparator(newTestPipeline(t, techKeywords(), nil), 30, discardLogger())

	got := c.Compare(context.Background(), "the and of", "python")
	assert.Equal(t, MethodWordOverlap, got.Method)
	assert.Equal(t, 0.0, got.MatchScore)
	require.Len(t, got.Missing, 1)
}

func TestCompareScoreRoundedToTwoDecimals(t *testing.T) {
	c := NewComparator(newTestPipeline(t, techKeywords(), nil), 30, discardLogger())

	got := c.Compare(context.Background(), "python docker sql experience", "python kubernetes sql")
	assert.InDelta(t, got.MatchScore, round2(got.MatchScore), 1e-9)
	assert.GreaterOrEqual(t, got.MatchScore, 0.0)
	assert.LessOrEqual(t, got.MatchScore, 100.0)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("resume", "job")
	assert.Equal(t, a, Fingerprint("resume", "job"))
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Fingerprint("job", "resume"))
	assert.NotEqual(t, Fingerprint("ab", ""), Fingerprint("a", "b"))
}

func TestCacheKeyChangesWithTaxonomyAndOptions(t *testing.T) {
	ctx := context.Background()
	tax := newTestCache(t, pythonOnly(), nil)
	p := NewPipeline(tax, scorer.New(scorer.DefaultWeights()), DefaultOptions(), discardLogger())
	c := NewComparator(p, 30, discardLogger())

	before, ok := c.CacheKey(ctx, "resume", "job")
	require.True(t, ok)
	again, _ := c.CacheKey(ctx, "resume", "job")
	assert.Equal(t, before, again)

	other, _ := NewComparator(p, 5, discardLogger()).CacheKey(ctx, "resume", "job")
	assert.NotEqual(t, before, other)

	require.NoError(t, tax.UpsertKeyword(ctx, &model.Keyword{Text: "kubernetes", BaseConfidence: 1}))
	after, ok := c.CacheKey(ctx, "resume", "job")
	require.True(t, ok)
	assert.NotEqual(t, before, after)
}

func TestCacheKeyUnavailableWithoutTaxonomy(t *testing.T) {
	p := NewPipeline(failingSource{}, scorer.New(scorer.DefaultWeights()), DefaultOptions(), discardLogger())
	_, ok := NewComparator(p, 30, discardLogger()).CacheKey(context.Background(), "resume", "job")
	assert.False(t, ok)
}
