package taxonomy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/keymatch/internal/model"
)

func TestNewSnapshot_DropsDeprecated(t *testing.T) {
	snap := NewSnapshot([]model.Keyword{
		{ID: 2, Text: "python"},
		{ID: 1, Text: "cobol", Deprecated: true, Synonyms: []string{"legacy"}},
	}, nil, time.Now())

	assert.Equal(t, 1, snap.Len())
	assert.True(t, snap.Has("python"))
	assert.False(t, snap.Has("cobol"))
	_, ok := snap.ByID(1)
	assert.False(t, ok)
	_, ok = snap.BySynonym("legacy")
	assert.False(t, ok)
}

func TestNewSnapshot_OrdersKeywordsByID(t *testing.T) {
	snap := NewSnapshot([]model.Keyword{
		{ID: 3, Text: "go"},
		{ID: 1, Text: "python"},
		{ID: 2, Text: "docker"},
	}, nil, time.Now())

	var ids []int64
	for _, k := range snap.Keywords() {
		ids = append(ids, k.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestNewSnapshot_SynonymLowestIDWins(t *testing.T) {
	snap := NewSnapshot([]model.Keyword{
		{ID: 5, Text: "postgresql", Synonyms: []string{"PG"}},
		{ID: 4, Text: "pgsql tools", Synonyms: []string{"pg", " "}},
	}, nil, time.Now())

	k, ok := snap.BySynonym("Pg")
	require.True(t, ok)
	assert.Equal(t, int64(4), k.ID)
}

func TestNewSnapshot_RuleOrder(t *testing.T) {
	rules := []model.MatchingRule{
		{ID: 3, Pattern: "c", Position: 1},
		{ID: 1, Pattern: "a", Position: 2},
		{ID: 2, Pattern: "b", Position: 1},
	}
	snap := NewSnapshot(nil, rules, time.Now())

	var patterns []string
	for _, r := range snap.Rules() {
		patterns = append(patterns, r.Pattern)
	}
	assert.Equal(t, []string{"b", "c", "a"}, patterns)
	// Input slice is untouched.
	assert.Equal(t, "c", rules[0].Pattern)
}

func TestSnapshot_Lookups(t *testing.T) {
	loaded := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := NewSnapshot([]model.Keyword{{ID: 7, Text: "kubernetes", Synonyms: []string{"k8s"}}}, nil, loaded)

	k, ok := snap.ByText("kubernetes")
	require.True(t, ok)
	assert.Equal(t, int64(7), k.ID)

	k, ok = snap.ByID(7)
	require.True(t, ok)
	assert.Equal(t, "kubernetes", k.Text)

	k, ok = snap.BySynonym("K8S")
	require.True(t, ok)
	assert.Equal(t, "kubernetes", k.Text)

	_, ok = snap.ByText("docker")
	assert.False(t, ok)
	assert.Equal(t, loaded, snap.LoadedAt())
}

func TestSnapshot_DigestTracksContent(t *testing.T) {
	kws := []model.Keyword{{ID: 1, Text: "python", IndustryRelevance: map[string]float64{"Technology": 0.9, "Finance": 0.5}}}
	a := NewSnapshot(kws, nil, time.Unix(1, 0))
	b := NewSnapshot(kws, nil, time.Unix(2, 0))
	assert.Equal(t, a.Digest(), b.Digest(), "load time is not content")

	grown := NewSnapshot(append(kws, model.Keyword{ID: 2, Text: "kubernetes"}), nil, time.Unix(1, 0))
	assert.NotEqual(t, a.Digest(), grown.Digest())

	ruled := NewSnapshot(kws, []model.MatchingRule{{ID: 1, Pattern: "py", Type: model.MatchSubstring, KeywordID: 1}}, time.Unix(1, 0))
	assert.NotEqual(t, a.Digest(), ruled.Digest())
}
