package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Priority ranks how important a keyword is when it appears in a document.
type Priority string

const (
	PriorityCritical  Priority = "critical"
	PriorityImportant Priority = "important"
	PriorityMedium    Priority = "medium"
	PriorityOptional  Priority = "optional"
)

// Difficulty describes how hard a skill is to acquire.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

// Keyword is a canonical taxonomy entry. Text is lowercase, unique and never
// renamed once stored.
type Keyword struct {
	ID                int64
	Text              string
	Category          string
	Priority          Priority
	Difficulty        Difficulty
	Synonyms          []string
	IndustryRelevance map[string]float64 // industry name -> relevance in [0,1]
	BaseConfidence    float64            // defaults to 1.0
	Deprecated        bool
	CreatedAt         time.Time
}

// MatchType selects how a MatchingRule pattern is tested against a token.
type MatchType string

const (
	MatchRegex          MatchType = "regex"
	MatchSubstring      MatchType = "substring"
	MatchFuzzy          MatchType = "fuzzy"
	MatchVersionVariant MatchType = "version_variant"
)

// MatchingRule maps noisy token text to a canonical keyword. Rules are evaluated
// in (Position, ID) order and the first satisfying rule wins.
type MatchingRule struct {
	ID         int64
	Pattern    string
	Type       MatchType
	KeywordID  int64
	Confidence float64
	Position   int
}

// MatchMethod records which matcher stage resolved a token.
type MatchMethod string

const (
	MethodExact        MatchMethod = "exact"
	MethodMatchingRule MatchMethod = "matching_rule"
	MethodSynonym      MatchMethod = "synonym"
	MethodFuzzy        MatchMethod = "fuzzy_match"
)

// ExtractedMatch is the result of resolving a single token against the taxonomy.
type ExtractedMatch struct {
	Keyword     Keyword
	MatchedText string
	Method      MatchMethod
	Confidence  float64
}

// RankedKeyword is an ExtractedMatch with its composite ranking score.
type RankedKeyword struct {
	ExtractedMatch
	Score float64
}

// Identity returns the key used for set algebra between documents: the taxonomy
// id when present, the keyword text otherwise.
func (r RankedKeyword) Identity() string {
	if r.Keyword.ID != 0 {
		return "id:" + strconv.FormatInt(r.Keyword.ID, 10)
	}
	return "text:" + r.Keyword.Text
}

// Comparison is the outcome of comparing a resume against a job description.
type Comparison struct {
	Found      []RankedKeyword // job keywords also present in the resume
	Missing    []RankedKeyword // job keywords absent from the resume
	MatchScore float64         // document similarity, 0-100, two decimals
	Method     string          // "tfidf", "word_overlap" or "empty"
}

// Strength classifies a skill relationship by co-occurrence count.
type Strength string

const (
	StrengthVeryWeak   Strength = "very_weak"
	StrengthWeak       Strength = "weak"
	StrengthModerate   Strength = "moderate"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "very_strong"
)

// SkillRelationship is a persisted co-occurrence aggregate. KeywordA is always
// lower than KeywordB so each unordered pair has exactly one row.
type SkillRelationship struct {
	KeywordA  int64
	KeywordB  int64
	Count     int
	Strength  Strength
	UpdatedAt time.Time
}

// Verdict is a human judgement on an extracted match.
type Verdict string

const (
	VerdictConfirmed Verdict = "confirmed"
	VerdictRejected  Verdict = "rejected"
)

// FeedbackRecord stores whether a user confirmed or rejected one extracted match
// of one analysis. Only confirmed records feed relationship mining.
type FeedbackRecord struct {
	ID          uuid.UUID
	AnalysisID  string
	KeywordID   int64
	MatchedText string
	Method      MatchMethod
	Verdict     Verdict
	CreatedAt   time.Time
}

// KeywordFilter narrows AllKeywords results. Empty fields match everything.
type KeywordFilter struct {
	Category          string
	Priority          Priority
	IncludeDeprecated bool
}

// Matches reports whether k passes the filter.
func (f KeywordFilter) Matches(k Keyword) bool {
	if k.Deprecated && !f.IncludeDeprecated {
		return false
	}
	if f.Category != "" && k.Category != f.Category {
		return false
	}
	if f.Priority != "" && k.Priority != f.Priority {
		return false
	}
	return true
}
