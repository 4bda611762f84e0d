package model

import "context"

// TaxonomyStore reads and maintains canonical keywords.
type TaxonomyStore interface {
	AllKeywords(ctx context.Context, filter KeywordFilter) ([]Keyword, error)
	// KeywordByText returns ErrNotFound when no keyword has the given text.
	KeywordByText(ctx context.Context, text string) (*Keyword, error)
	KeywordByID(ctx context.Context, id int64) (*Keyword, error)
	// UpsertKeyword creates k or updates the metadata of the keyword with the
	// same text. k.ID is set on return.
	UpsertKeyword(ctx context.Context, k *Keyword) error
}

// RuleStore reads and appends matching rules.
type RuleStore interface {
	// AllMatchingRules returns rules ordered by (Position, ID).
	AllMatchingRules(ctx context.Context) ([]MatchingRule, error)
	AddMatchingRule(ctx context.Context, r *MatchingRule) error
}

// RelationshipStore persists co-occurrence aggregates.
type RelationshipStore interface {
	// UpsertRelationship stores count and strength for the pair, replacing any
	// existing values. Implementations order the pair canonically.
	UpsertRelationship(ctx context.Context, idA, idB int64, count int, strength Strength) error
	AllRelationships(ctx context.Context) ([]SkillRelationship, error)
}

// FeedbackStore records human verdicts on extracted matches.
type FeedbackStore interface {
	RecordFeedback(ctx context.Context, rec FeedbackRecord) error
	// ConfirmedMatchesByAnalysis groups confirmed keyword ids by analysis id.
	ConfirmedMatchesByAnalysis(ctx context.Context) (map[string][]int64, error)
}

// Store is the full persistence contract of the engine.
type Store interface {
	TaxonomyStore
	RuleStore
	RelationshipStore
	FeedbackStore
}

// Reporter presents extraction and comparison results.
type Reporter interface {
	ReportKeywords(label string, keywords []RankedKeyword) error
	ReportComparison(c Comparison) error
}
