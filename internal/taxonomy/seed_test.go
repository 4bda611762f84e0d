package taxonomy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/store"
)

const sampleSeed = `
keywords:
  - text: python
    category: programming
    priority: critical
    synonyms: [py, python3]
    industry_relevance:
      technology: 1.0
      finance: 0.8
  - text: kubernetes
    category: devops
    synonyms: [k8s]
    base_confidence: 0.9
rules:
  - pattern: "python [version]"
    type: version_variant
    keyword: Python
    confidence: 0.95
  - pattern: kube
    type: substring
    keyword: kubernetes
    position: 1
`

func TestParseSeed(t *testing.T) {
	seed, err := ParseSeed([]byte(sampleSeed))
	require.NoError(t, err)

	require.Len(t, seed.Keywords, 2)
	require.Len(t, seed.Rules, 2)
	assert.Equal(t, []string{"py", "python3"}, seed.Keywords[0].Synonyms)
	assert.InDelta(t, 0.8, seed.Keywords[0].IndustryRelevance["finance"], 1e-9)
}

func TestParseSeed_Invalid(t *testing.T) {
	cases := map[string]string{
		"uppercase text":      "keywords:\n  - text: Python\n",
		"missing text":        "keywords:\n  - category: x\n",
		"bad priority":        "keywords:\n  - text: go\n    priority: urgent\n",
		"relevance too high":  "keywords:\n  - text: go\n    industry_relevance: {tech: 1.5}\n",
		"bad rule type":       "rules:\n  - pattern: x\n    type: glob\n    keyword: go\n",
		"rule without target": "rules:\n  - pattern: x\n    type: regex\n",
		"duplicate keyword":   "keywords:\n  - text: go\n  - text: go\n",
		"malformed yaml":      "keywords: [\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeed([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestSeedApply(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	c := NewCache(mem, 0, discardLogger())

	seed, err := ParseSeed([]byte(sampleSeed))
	require.NoError(t, err)

	res, err := seed.Apply(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Keywords: 2, Rules: 2}, res)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)

	py, ok := snap.ByText("python")
	require.True(t, ok)
	assert.Equal(t, model.PriorityCritical, py.Priority)
	assert.Equal(t, model.DifficultyIntermediate, py.Difficulty)
	assert.InDelta(t, 1.0, py.BaseConfidence, 1e-9)

	k8s, ok := snap.ByText("kubernetes")
	require.True(t, ok)
	assert.Equal(t, model.PriorityMedium, k8s.Priority)
	assert.InDelta(t, 0.9, k8s.BaseConfidence, 1e-9)

	rules := snap.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, py.ID, rules[0].KeywordID)
	assert.InDelta(t, 0.95, rules[0].Confidence, 1e-9)
	assert.Equal(t, k8s.ID, rules[1].KeywordID)
	assert.InDelta(t, 0.9, rules[1].Confidence, 1e-9)
}

func TestSeedApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	c := NewCache(mem, 0, discardLogger())
	seed, err := ParseSeed([]byte(sampleSeed))
	require.NoError(t, err)

	_, err = seed.Apply(ctx, c)
	require.NoError(t, err)
	_, err = seed.Apply(ctx, c)
	require.NoError(t, err)

	all, err := mem.AllKeywords(ctx, model.KeywordFilter{IncludeDeprecated: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	rules, err := mem.AllMatchingRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestSeedApply_UnknownRuleTarget(t *testing.T) {
	seed, err := ParseSeed([]byte("rules:\n  - pattern: x\n    type: substring\n    keyword: missing\n"))
	require.NoError(t, err)

	_, err = seed.Apply(context.Background(), NewCache(store.NewMemoryStore(), 0, discardLogger()))
	assert.ErrorIs(t, err, model.ErrNotFound)
}
