package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/amishk599/keymatch/internal/model"
)

var _ model.Store = (*MemoryStore)(nil)

// MemoryStore is an in-process store used in dry-run mode and tests. Nothing
// survives the process.
type MemoryStore struct {
	mu            sync.RWMutex
	nextKeywordID int64
	nextRuleID    int64
	keywords      map[int64]model.Keyword
	byText        map[string]int64
	rules         []model.MatchingRule
	relationships map[[2]int64]model.SkillRelationship
	feedback      []model.FeedbackRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keywords:      make(map[int64]model.Keyword),
		byText:        make(map[string]int64),
		relationships: make(map[[2]int64]model.SkillRelationship),
	}
}

func (s *MemoryStore) AllKeywords(_ context.Context, filter model.KeywordFilter) ([]model.Keyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Keyword, 0, len(s.keywords))
	for _, k := range s.keywords {
		if filter.Matches(k) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) KeywordByText(_ context.Context, text string) (*model.Keyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byText[text]
	if !ok {
		return nil, model.ErrNotFound
	}
	k := s.keywords[id]
	return &k, nil
}

func (s *MemoryStore) KeywordByID(_ context.Context, id int64) (*model.Keyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keywords[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &k, nil
}

func (s *MemoryStore) UpsertKeyword(_ context.Context, k *model.Keyword) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byText[k.Text]; ok {
		k.ID = id
		k.CreatedAt = s.keywords[id].CreatedAt
		s.keywords[id] = *k
		return nil
	}
	s.nextKeywordID++
	k.ID = s.nextKeywordID
	if k.CreatedAt.IsZero() {
		k.CreatedAt = time.Now()
	}
	s.keywords[k.ID] = *k
	s.byText[k.Text] = k.ID
	return nil
}

func (s *MemoryStore) AllMatchingRules(_ context.Context) ([]model.MatchingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]model.MatchingRule(nil), s.rules...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) AddMatchingRule(_ context.Context, r *model.MatchingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.rules {
		if existing.Pattern == r.Pattern && existing.Type == r.Type && existing.KeywordID == r.KeywordID {
			r.ID = existing.ID
			s.rules[i] = *r
			return nil
		}
	}
	s.nextRuleID++
	r.ID = s.nextRuleID
	s.rules = append(s.rules, *r)
	return nil
}

func (s *MemoryStore) UpsertRelationship(_ context.Context, idA, idB int64, count int, strength model.Strength) error {
	if idA > idB {
		idA, idB = idB, idA
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relationships[[2]int64{idA, idB}] = model.SkillRelationship{
		KeywordA:  idA,
		KeywordB:  idB,
		Count:     count,
		Strength:  strength,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (s *MemoryStore) AllRelationships(_ context.Context) ([]model.SkillRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SkillRelationship, 0, len(s.relationships))
	for _, r := range s.relationships {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].KeywordA != out[j].KeywordA {
			return out[i].KeywordA < out[j].KeywordA
		}
		return out[i].KeywordB < out[j].KeywordB
	})
	return out, nil
}

func (s *MemoryStore) RecordFeedback(_ context.Context, rec model.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.feedback {
		if existing.ID == rec.ID {
			return fmt.Errorf("recording feedback %s: %w", rec.ID, model.ErrConflict)
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.feedback = append(s.feedback, rec)
	return nil
}

func (s *MemoryStore) ConfirmedMatchesByAnalysis(_ context.Context) (map[string][]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]int64)
	for _, rec := range s.feedback {
		if rec.Verdict == model.VerdictConfirmed {
			out[rec.AnalysisID] = append(out[rec.AnalysisID], rec.KeywordID)
		}
	}
	return out, nil
}
