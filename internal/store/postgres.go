package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/keymatch/internal/model"
)

var _ model.Store = (*PostgresStore)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS keywords (
	id                 BIGSERIAL PRIMARY KEY,
	text               TEXT NOT NULL UNIQUE,
	category           TEXT NOT NULL DEFAULT 'general',
	priority           TEXT NOT NULL DEFAULT 'medium',
	difficulty         TEXT NOT NULL DEFAULT 'intermediate',
	synonyms           JSONB NOT NULL DEFAULT '[]',
	industry_relevance JSONB NOT NULL DEFAULT '{}',
	base_confidence    DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	deprecated         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS matching_rules (
	id         BIGSERIAL PRIMARY KEY,
	pattern    TEXT NOT NULL,
	match_type TEXT NOT NULL,
	keyword_id BIGINT NOT NULL REFERENCES keywords(id),
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0.9,
	position   INTEGER NOT NULL DEFAULT 0,
	UNIQUE (pattern, match_type, keyword_id)
);
CREATE TABLE IF NOT EXISTS skill_relationships (
	keyword_a  BIGINT NOT NULL,
	keyword_b  BIGINT NOT NULL,
	count      INTEGER NOT NULL,
	strength   TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (keyword_a, keyword_b),
	CHECK (keyword_a < keyword_b)
);
CREATE TABLE IF NOT EXISTS match_feedback (
	id           UUID PRIMARY KEY,
	analysis_id  TEXT NOT NULL,
	keyword_id   BIGINT NOT NULL,
	matched_text TEXT NOT NULL DEFAULT '',
	method       TEXT NOT NULL DEFAULT '',
	verdict      TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_match_feedback_verdict ON match_feedback (verdict, analysis_id);
`

// pgConflict marks integrity constraint violations (SQLSTATE class 23) with
// model.ErrConflict.
func pgConflict(err error) error {
	var pe *pgconn.PgError
	if errors.As(err, &pe) && strings.HasPrefix(pe.Code, "23") {
		return fmt.Errorf("%w: %w", model.ErrConflict, err)
	}
	return err
}

// PostgresStore is the Store backed by a PostgreSQL connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL, verifies the connection and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// AllKeywords returns keywords matching filter ordered by id.
func (s *PostgresStore) AllKeywords(ctx context.Context, filter model.KeywordFilter) ([]model.Keyword, error) {
	var where []string
	var args []any
	if !filter.IncludeDeprecated {
		where = append(where, "NOT deprecated")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}

	query := "SELECT " + keywordColumns + " FROM keywords"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing keywords: %w", err)
	}
	defer rows.Close()

	var out []model.Keyword
	for rows.Next() {
		k, err := scanPostgresKeyword(rows)
		if err != nil {
			return nil, fmt.Errorf("listing keywords: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing keywords: %w", err)
	}
	return out, nil
}

// KeywordByText returns the keyword with the given canonical text.
func (s *PostgresStore) KeywordByText(ctx context.Context, text string) (*model.Keyword, error) {
	k, err := scanPostgresKeyword(s.pool.QueryRow(ctx, "SELECT "+keywordColumns+" FROM keywords WHERE text = $1", text))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up keyword %q: %w", text, err)
	}
	return &k, nil
}

// KeywordByID returns the keyword with the given id.
func (s *PostgresStore) KeywordByID(ctx context.Context, id int64) (*model.Keyword, error) {
	k, err := scanPostgresKeyword(s.pool.QueryRow(ctx, "SELECT "+keywordColumns+" FROM keywords WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up keyword %d: %w", id, err)
	}
	return &k, nil
}

// UpsertKeyword inserts k or updates the metadata of the keyword with the same text.
func (s *PostgresStore) UpsertKeyword(ctx context.Context, k *model.Keyword) error {
	synonyms, relevance, err := encodeKeywordJSON(k)
	if err != nil {
		return err
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO keywords (text, category, priority, difficulty, synonyms, industry_relevance, base_confidence, deprecated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (text) DO UPDATE SET
			category = EXCLUDED.category,
			priority = EXCLUDED.priority,
			difficulty = EXCLUDED.difficulty,
			synonyms = EXCLUDED.synonyms,
			industry_relevance = EXCLUDED.industry_relevance,
			base_confidence = EXCLUDED.base_confidence,
			deprecated = EXCLUDED.deprecated
		RETURNING id`,
		k.Text, k.Category, string(k.Priority), string(k.Difficulty),
		synonyms, relevance, k.BaseConfidence, k.Deprecated,
	).Scan(&k.ID)
	if err != nil {
		return fmt.Errorf("upserting keyword %q: %w", k.Text, pgConflict(err))
	}
	return nil
}

// AllMatchingRules returns rules in evaluation order.
func (s *PostgresStore) AllMatchingRules(ctx context.Context) ([]model.MatchingRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, pattern, match_type, keyword_id, confidence, position
		FROM matching_rules ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("listing matching rules: %w", err)
	}
	defer rows.Close()

	var out []model.MatchingRule
	for rows.Next() {
		var r model.MatchingRule
		var mt string
		if err := rows.Scan(&r.ID, &r.Pattern, &mt, &r.KeywordID, &r.Confidence, &r.Position); err != nil {
			return nil, fmt.Errorf("scanning matching rule: %w", err)
		}
		r.Type = model.MatchType(mt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddMatchingRule inserts r or refreshes an identical rule's confidence and position.
func (s *PostgresStore) AddMatchingRule(ctx context.Context, r *model.MatchingRule) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO matching_rules (pattern, match_type, keyword_id, confidence, position)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pattern, match_type, keyword_id) DO UPDATE SET
			confidence = EXCLUDED.confidence,
			position = EXCLUDED.position
		RETURNING id`,
		r.Pattern, string(r.Type), r.KeywordID, r.Confidence, r.Position,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("adding matching rule %q: %w", r.Pattern, pgConflict(err))
	}
	return nil
}

// UpsertRelationship stores the canonically ordered pair, replacing count and strength.
func (s *PostgresStore) UpsertRelationship(ctx context.Context, idA, idB int64, count int, strength model.Strength) error {
	if idA > idB {
		idA, idB = idB, idA
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO skill_relationships (keyword_a, keyword_b, count, strength, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (keyword_a, keyword_b) DO UPDATE SET
			count = EXCLUDED.count,
			strength = EXCLUDED.strength,
			updated_at = NOW()`,
		idA, idB, count, string(strength),
	)
	if err != nil {
		return fmt.Errorf("upserting relationship %d-%d: %w", idA, idB, pgConflict(err))
	}
	return nil
}

// AllRelationships returns every stored pair.
func (s *PostgresStore) AllRelationships(ctx context.Context) ([]model.SkillRelationship, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT keyword_a, keyword_b, count, strength, updated_at
		FROM skill_relationships ORDER BY keyword_a, keyword_b`)
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}
	defer rows.Close()

	var out []model.SkillRelationship
	for rows.Next() {
		var r model.SkillRelationship
		var strength string
		if err := rows.Scan(&r.KeywordA, &r.KeywordB, &r.Count, &strength, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		r.Strength = model.Strength(strength)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordFeedback stores one verdict.
func (s *PostgresStore) RecordFeedback(ctx context.Context, rec model.FeedbackRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO match_feedback (id, analysis_id, keyword_id, matched_text, method, verdict, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.AnalysisID, rec.KeywordID, rec.MatchedText,
		string(rec.Method), string(rec.Verdict), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording feedback for analysis %s: %w", rec.AnalysisID, pgConflict(err))
	}
	return nil
}

// ConfirmedMatchesByAnalysis groups confirmed keyword ids by analysis.
func (s *PostgresStore) ConfirmedMatchesByAnalysis(ctx context.Context) (map[string][]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT analysis_id, keyword_id FROM match_feedback
		WHERE verdict = $1 ORDER BY analysis_id, created_at`, string(model.VerdictConfirmed))
	if err != nil {
		return nil, fmt.Errorf("listing confirmed matches: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]int64)
	for rows.Next() {
		var analysisID string
		var keywordID int64
		if err := rows.Scan(&analysisID, &keywordID); err != nil {
			return nil, fmt.Errorf("scanning confirmed match: %w", err)
		}
		out[analysisID] = append(out[analysisID], keywordID)
	}
	return out, rows.Err()
}

func scanPostgresKeyword(row pgx.Row) (model.Keyword, error) {
	var k model.Keyword
	var priority, difficulty string
	var synonyms, relevance []byte
	err := row.Scan(&k.ID, &k.Text, &k.Category, &priority, &difficulty,
		&synonyms, &relevance, &k.BaseConfidence, &k.Deprecated, &k.CreatedAt)
	if err != nil {
		return k, err
	}
	k.Priority = model.Priority(priority)
	k.Difficulty = model.Difficulty(difficulty)
	if err := decodeKeywordJSON(&k, synonyms, relevance); err != nil {
		return k, err
	}
	return k, nil
}
