// Package scorer ranks extracted matches with a fixed linear weighting of
// keyword metadata and match quality.
package scorer

import (
	"strings"

	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/similarity"
)

// defaultIndustryRelevance applies when no industry is given or the keyword
// has no entry for it.
const defaultIndustryRelevance = 0.5

// Weights are the coefficients of the composite score and the categorical
// lookups feeding it.
type Weights struct {
	BaseConfidence float64
	Priority       float64
	Difficulty     float64
	Industry       float64
	MatchQuality   float64

	PriorityWeights   map[model.Priority]float64
	DifficultyWeights map[model.Difficulty]float64
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		BaseConfidence: 0.20,
		Priority:       0.30,
		Difficulty:     0.20,
		Industry:       0.15,
		MatchQuality:   0.15,
		PriorityWeights: map[model.Priority]float64{
			model.PriorityCritical:  1.0,
			model.PriorityImportant: 0.8,
			model.PriorityMedium:    0.6,
			model.PriorityOptional:  0.4,
		},
		DifficultyWeights: map[model.Difficulty]float64{
			model.DifficultyBeginner:     0.6,
			model.DifficultyIntermediate: 0.8,
			model.DifficultyAdvanced:     0.95,
			model.DifficultyExpert:       1.0,
		},
	}
}

// Context carries the optional document context for scoring.
type Context struct {
	JobRole  string
	Industry string
}

// Scorer computes composite ranking scores. It is safe for concurrent use.
type Scorer struct {
	w Weights
}

// New returns a Scorer using w. Missing categorical tables fall back to the
// defaults.
func New(w Weights) *Scorer {
	d := DefaultWeights()
	if w.PriorityWeights == nil {
		w.PriorityWeights = d.PriorityWeights
	}
	if w.DifficultyWeights == nil {
		w.DifficultyWeights = d.DifficultyWeights
	}
	return &Scorer{w: w}
}

// Weights returns the weights in effect.
func (s *Scorer) Weights() Weights { return s.w }

// Score returns the composite score of m in [0,1].
func (s *Scorer) Score(m model.ExtractedMatch, ctx Context) float64 {
	k := m.Keyword
	score := s.w.BaseConfidence*k.BaseConfidence +
		s.w.Priority*s.priorityWeight(k.Priority) +
		s.w.Difficulty*s.difficultyWeight(k.Difficulty) +
		s.w.Industry*industryRelevance(k, ctx.Industry) +
		s.w.MatchQuality*similarity.Ratio(k.Text, m.MatchedText)
	return min(max(score, 0), 1)
}

func (s *Scorer) priorityWeight(p model.Priority) float64 {
	if w, ok := s.w.PriorityWeights[p]; ok {
		return w
	}
	return s.w.PriorityWeights[model.PriorityMedium]
}

func (s *Scorer) difficultyWeight(d model.Difficulty) float64 {
	if w, ok := s.w.DifficultyWeights[d]; ok {
		return w
	}
	return s.w.DifficultyWeights[model.DifficultyIntermediate]
}

// industryRelevance looks the industry up exactly, then case-insensitively.
func industryRelevance(k model.Keyword, industry string) float64 {
	if industry == "" {
		return defaultIndustryRelevance
	}
	if v, ok := k.IndustryRelevance[industry]; ok {
		return v
	}
	for name, v := range k.IndustryRelevance {
		if strings.EqualFold(name, industry) {
			return v
		}
	}
	return defaultIndustryRelevance
}
