// Package taxonomy owns the engine's read view of canonical keywords and
// matching rules: immutable snapshots, a TTL cache in front of the store that
// invalidates on write, and the YAML seed loader.
package taxonomy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/amishk599/keymatch/internal/model"
)

// Snapshot is an immutable view of the active (non-deprecated) taxonomy and
// the ordered matching rules. It is safe for concurrent use.
type Snapshot struct {
	keywords  []model.Keyword
	byText    map[string]int
	byID      map[int64]int
	bySynonym map[string]int
	rules     []model.MatchingRule
	loadedAt  time.Time
	digest    string
}

// NewSnapshot builds a snapshot from raw store results. Deprecated keywords are
// dropped: they are never a match target. Rules are sorted by (Position, ID).
func NewSnapshot(keywords []model.Keyword, rules []model.MatchingRule, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		byText:    make(map[string]int, len(keywords)),
		byID:      make(map[int64]int, len(keywords)),
		bySynonym: make(map[string]int),
		loadedAt:  loadedAt,
	}

	active := make([]model.Keyword, 0, len(keywords))
	for _, k := range keywords {
		if !k.Deprecated {
			active = append(active, k)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	s.keywords = active

	for i, k := range active {
		text := strings.ToLower(k.Text)
		if _, dup := s.byText[text]; !dup {
			s.byText[text] = i
		}
		s.byID[k.ID] = i
		for _, syn := range k.Synonyms {
			syn = strings.ToLower(strings.TrimSpace(syn))
			if syn == "" {
				continue
			}
			// Lowest id wins when two keywords share a synonym.
			if _, dup := s.bySynonym[syn]; !dup {
				s.bySynonym[syn] = i
			}
		}
	}

	s.rules = append([]model.MatchingRule(nil), rules...)
	sort.SliceStable(s.rules, func(i, j int) bool {
		if s.rules[i].Position != s.rules[j].Position {
			return s.rules[i].Position < s.rules[j].Position
		}
		return s.rules[i].ID < s.rules[j].ID
	})
	s.digest = digest(s.keywords, s.rules)
	return s
}

// digest hashes every field that can change a match or a score. Two snapshots
// with equal content share a digest regardless of when or where they loaded.
func digest(keywords []model.Keyword, rules []model.MatchingRule) string {
	h := sha256.New()
	for _, k := range keywords {
		// %v prints maps with sorted keys.
		fmt.Fprintf(h, "k|%d|%q|%q|%s|%s|%q|%v|%g\n",
			k.ID, k.Text, k.Category, k.Priority, k.Difficulty, k.Synonyms, k.IndustryRelevance, k.BaseConfidence)
	}
	for _, r := range rules {
		fmt.Fprintf(h, "r|%d|%q|%s|%d|%g|%d\n", r.ID, r.Pattern, r.Type, r.KeywordID, r.Confidence, r.Position)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Keywords returns the active keywords ordered by id. Callers must not modify
// the returned slice.
func (s *Snapshot) Keywords() []model.Keyword { return s.keywords }

// Rules returns the matching rules in evaluation order.
func (s *Snapshot) Rules() []model.MatchingRule { return s.rules }

// LoadedAt is when the snapshot was read from the store.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Digest is a content hash of the active keywords and rules.
func (s *Snapshot) Digest() string { return s.digest }

// Len is the number of active keywords.
func (s *Snapshot) Len() int { return len(s.keywords) }

// ByText returns the active keyword whose canonical text equals text.
func (s *Snapshot) ByText(text string) (model.Keyword, bool) {
	i, ok := s.byText[text]
	if !ok {
		return model.Keyword{}, false
	}
	return s.keywords[i], true
}

// Has reports whether text is the canonical text of an active keyword.
func (s *Snapshot) Has(text string) bool {
	_, ok := s.byText[text]
	return ok
}

// ByID returns the active keyword with the given id.
func (s *Snapshot) ByID(id int64) (model.Keyword, bool) {
	i, ok := s.byID[id]
	if !ok {
		return model.Keyword{}, false
	}
	return s.keywords[i], true
}

// BySynonym returns the active keyword listing token as a synonym,
// compared case-insensitively.
func (s *Snapshot) BySynonym(token string) (model.Keyword, bool) {
	i, ok := s.bySynonym[strings.ToLower(token)]
	if !ok {
		return model.Keyword{}, false
	}
	return s.keywords[i], true
}
