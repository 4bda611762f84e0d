package matcher

import (
	"unicode/utf8"

	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/similarity"
	"github.com/amishk599/keymatch/internal/taxonomy"
)

const (
	// DefaultFuzzyThreshold is the minimum ratio for a fuzzy taxonomy match.
	DefaultFuzzyThreshold = 0.75
	synonymConfidence     = 0.95
	minTokenRunes         = 2
)

// Matcher resolves single terms against one taxonomy snapshot. It holds no
// mutable state and is safe for concurrent use.
type Matcher struct {
	snap           *taxonomy.Snapshot
	rules          *RuleSet
	fuzzyThreshold float64
}

// New returns a Matcher over snap using pre-compiled rules. A non-positive
// fuzzyThreshold uses DefaultFuzzyThreshold.
func New(snap *taxonomy.Snapshot, rules *RuleSet, fuzzyThreshold float64) *Matcher {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}
	return &Matcher{snap: snap, rules: rules, fuzzyThreshold: fuzzyThreshold}
}

// Match resolves token by exact text, then the first satisfied matching rule,
// then synonym, then fuzzy similarity. Deprecated keywords are never returned.
func (m *Matcher) Match(token string) (model.ExtractedMatch, bool) {
	if utf8.RuneCountInString(token) < minTokenRunes {
		return model.ExtractedMatch{}, false
	}

	if k, ok := m.snap.ByText(token); ok {
		return model.ExtractedMatch{Keyword: k, MatchedText: token, Method: model.MethodExact, Confidence: 1.0}, true
	}

	if cr, ok := m.rules.First(token); ok {
		return model.ExtractedMatch{Keyword: cr.Keyword, MatchedText: token, Method: model.MethodMatchingRule, Confidence: cr.Rule.Confidence}, true
	}

	if k, ok := m.snap.BySynonym(token); ok {
		return model.ExtractedMatch{Keyword: k, MatchedText: token, Method: model.MethodSynonym, Confidence: synonymConfidence}, true
	}

	if k, ratio, ok := m.fuzzy(token); ok {
		return model.ExtractedMatch{Keyword: k, MatchedText: token, Method: model.MethodFuzzy, Confidence: ratio}, true
	}
	return model.ExtractedMatch{}, false
}

// fuzzy scans every active keyword text and synonym in id order. Only a
// strictly better ratio replaces the current best.
func (m *Matcher) fuzzy(token string) (model.Keyword, float64, bool) {
	var best model.Keyword
	bestRatio := 0.0
	found := false
	for _, k := range m.snap.Keywords() {
		r := similarity.Ratio(token, k.Text)
		for _, syn := range k.Synonyms {
			r = max(r, similarity.Ratio(token, syn))
		}
		if r >= m.fuzzyThreshold && r > bestRatio {
			best, bestRatio, found = k, r, true
		}
	}
	return best, bestRatio, found
}
