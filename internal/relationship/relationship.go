// Package relationship mines skill co-occurrence from confirmed matches and
// recommends related skills.
package relationship

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/amishk599/keymatch/internal/model"
)

// DefaultMinThreshold is the smallest co-occurrence count that is persisted.
const DefaultMinThreshold = 2

// Cooccurrences maps a keyword id to the ids it appeared with and how many
// analyses they shared. It is symmetric: co[a][b] == co[b][a].
type Cooccurrences map[int64]map[int64]int

// Count returns how many analyses contained both a and b.
func (co Cooccurrences) Count(a, b int64) int {
	return co[a][b]
}

// ComputeCooccurrences counts, for every unordered pair of distinct keywords,
// the analyses in which both were confirmed. Repeats of a keyword within one
// analysis count once.
func ComputeCooccurrences(groups map[string][]int64) Cooccurrences {
	co := make(Cooccurrences)
	for _, ids := range groups {
		uniq := distinct(ids)
		for i := 0; i < len(uniq); i++ {
			for j := i + 1; j < len(uniq); j++ {
				co.add(uniq[i], uniq[j])
				co.add(uniq[j], uniq[i])
			}
		}
	}
	return co
}

func (co Cooccurrences) add(a, b int64) {
	m, ok := co[a]
	if !ok {
		m = make(map[int64]int)
		co[a] = m
	}
	m[b]++
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// StrengthFor classifies a co-occurrence count.
func StrengthFor(count int) model.Strength {
	switch {
	case count < 2:
		return model.StrengthVeryWeak
	case count < 5:
		return model.StrengthWeak
	case count < 10:
		return model.StrengthModerate
	case count < 20:
		return model.StrengthStrong
	default:
		return model.StrengthVeryStrong
	}
}

// Recommendation is a candidate related skill and its summed co-occurrence.
// Seeds counts the input skills it co-occurred with.
type Recommendation struct {
	KeywordID int64
	Score     int
	Seeds     int
}

// Strength labels the recommendation when Score is a single pair's count,
// that is when exactly one input skill contributed. A sum over several pairs
// has no strength.
func (r Recommendation) Strength() (model.Strength, bool) {
	if r.Seeds != 1 {
		return "", false
	}
	return StrengthFor(r.Score), true
}

// RecommendRelated sums co-occurrence counts with every input skill and
// returns the topN other skills by descending score, ties by ascending id.
func RecommendRelated(co Cooccurrences, skills []int64, topN int) []Recommendation {
	if topN <= 0 {
		return nil
	}
	input := make(map[int64]bool, len(skills))
	for _, id := range skills {
		input[id] = true
	}

	byID := make(map[int64]*Recommendation)
	for id := range input {
		for other, count := range co[id] {
			if input[other] {
				continue
			}
			r, ok := byID[other]
			if !ok {
				r = &Recommendation{KeywordID: other}
				byID[other] = r
			}
			r.Score += count
			r.Seeds++
		}
	}

	recs := make([]Recommendation, 0, len(byID))
	for _, r := range byID {
		recs = append(recs, *r)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].KeywordID < recs[j].KeywordID
	})
	if len(recs) > topN {
		recs = recs[:topN]
	}
	return recs
}

// Store is what the analyzer reads feedback from and writes pairs to.
type Store interface {
	model.FeedbackStore
	model.RelationshipStore
}

// Analyzer rebuilds persisted skill relationships from confirmed feedback.
type Analyzer struct {
	store        Store
	minThreshold int
	logger       *slog.Logger
}

// NewAnalyzer returns an Analyzer. A non-positive minThreshold uses
// DefaultMinThreshold.
func NewAnalyzer(store Store, minThreshold int, logger *slog.Logger) *Analyzer {
	if minThreshold <= 0 {
		minThreshold = DefaultMinThreshold
	}
	return &Analyzer{store: store, minThreshold: minThreshold, logger: logger}
}

// Cooccurrences computes counts over all confirmed feedback.
func (a *Analyzer) Cooccurrences(ctx context.Context) (Cooccurrences, error) {
	groups, err := a.store.ConfirmedMatchesByAnalysis(ctx)
	if err != nil {
		return nil, fmt.Errorf("load confirmed matches: %w", err)
	}
	return ComputeCooccurrences(groups), nil
}

// PersistRelationships recomputes every pair from scratch and upserts those
// with count >= minThreshold, replacing stored counts. It returns the number
// of pairs written.
func (a *Analyzer) PersistRelationships(ctx context.Context, minThreshold int) (int, error) {
	co, err := a.Cooccurrences(ctx)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, pair := range canonicalPairs(co) {
		count := co.Count(pair[0], pair[1])
		if count < minThreshold {
			continue
		}
		if err := a.store.UpsertRelationship(ctx, pair[0], pair[1], count, StrengthFor(count)); err != nil {
			return written, fmt.Errorf("persist relationship: %w", err)
		}
		written++
	}
	return written, nil
}

// Name identifies the analyzer as a scheduled job.
func (a *Analyzer) Name() string { return "relationship-rebuild" }

// Run performs one full rebuild with the configured threshold.
func (a *Analyzer) Run(ctx context.Context) error {
	n, err := a.PersistRelationships(ctx, a.minThreshold)
	if err != nil {
		return err
	}
	a.logger.Info("skill relationships rebuilt", "pairs", n, "min_threshold", a.minThreshold)
	return nil
}

// canonicalPairs lists each unordered pair once as (low, high), sorted.
func canonicalPairs(co Cooccurrences) [][2]int64 {
	var pairs [][2]int64
	for a, others := range co {
		for b := range others {
			if a < b {
				pairs = append(pairs, [2]int64{a, b})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}
