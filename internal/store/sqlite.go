package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/amishk599/keymatch/internal/model"
)

var _ model.Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS keywords (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	text               TEXT NOT NULL UNIQUE,
	category           TEXT NOT NULL DEFAULT 'general',
	priority           TEXT NOT NULL DEFAULT 'medium',
	difficulty         TEXT NOT NULL DEFAULT 'intermediate',
	synonyms           TEXT NOT NULL DEFAULT '[]',
	industry_relevance TEXT NOT NULL DEFAULT '{}',
	base_confidence    REAL NOT NULL DEFAULT 1.0,
	deprecated         INTEGER NOT NULL DEFAULT 0,
	created_at         DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS matching_rules (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	pattern    TEXT NOT NULL,
	match_type TEXT NOT NULL,
	keyword_id INTEGER NOT NULL REFERENCES keywords(id),
	confidence REAL NOT NULL DEFAULT 0.9,
	position   INTEGER NOT NULL DEFAULT 0,
	UNIQUE (pattern, match_type, keyword_id)
);
CREATE TABLE IF NOT EXISTS skill_relationships (
	keyword_a  INTEGER NOT NULL,
	keyword_b  INTEGER NOT NULL,
	count      INTEGER NOT NULL,
	strength   TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (keyword_a, keyword_b),
	CHECK (keyword_a < keyword_b)
);
CREATE TABLE IF NOT EXISTS match_feedback (
	id           TEXT PRIMARY KEY,
	analysis_id  TEXT NOT NULL,
	keyword_id   INTEGER NOT NULL,
	matched_text TEXT NOT NULL DEFAULT '',
	method       TEXT NOT NULL DEFAULT '',
	verdict      TEXT NOT NULL,
	created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_match_feedback_verdict ON match_feedback (verdict, analysis_id);
`

// sqliteConflict marks constraint violations with model.ErrConflict.
func sqliteConflict(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %w", model.ErrConflict, err)
	}
	return err
}

// SQLiteStore persists the taxonomy, rules, relationships and feedback in a
// SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

const keywordColumns = `id, text, category, priority, difficulty, synonyms, industry_relevance, base_confidence, deprecated, created_at`

// AllKeywords returns keywords matching filter ordered by id.
func (s *SQLiteStore) AllKeywords(ctx context.Context, filter model.KeywordFilter) ([]model.Keyword, error) {
	var where []string
	var args []any
	if !filter.IncludeDeprecated {
		where = append(where, "deprecated = 0")
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(filter.Priority))
	}

	query := "SELECT " + keywordColumns + " FROM keywords"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing keywords: %w", err)
	}
	defer rows.Close()

	var out []model.Keyword
	for rows.Next() {
		k, err := scanSQLiteKeyword(rows)
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
func (s *SQLiteStore) KeywordByText(ctx context.Context, text string) (*model.Keyword, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+keywordColumns+" FROM keywords WHERE text = ?", text)
	k, err := scanSQLiteKeyword(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up keyword %q: %w", text, err)
	}
	return &k, nil
}

// KeywordByID returns the keyword with the given id.
func (s *SQLiteStore) KeywordByID(ctx context.Context, id int64) (*model.Keyword, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+keywordColumns+" FROM keywords WHERE id = ?", id)
	k, err := scanSQLiteKeyword(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up keyword %d: %w", id, err)
	}
	return &k, nil
}

// UpsertKeyword inserts k or updates the metadata of the keyword with the same
// text. The text itself is never changed.
func (s *SQLiteStore) UpsertKeyword(ctx context.Context, k *model.Keyword) error {
	synonyms, relevance, err := encodeKeywordJSON(k)
	if err != nil {
		return err
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO keywords (text, category, priority, difficulty, synonyms, industry_relevance, base_confidence, deprecated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (text) DO UPDATE SET
			category = excluded.category,
			priority = excluded.priority,
			difficulty = excluded.difficulty,
			synonyms = excluded.synonyms,
			industry_relevance = excluded.industry_relevance,
			base_confidence = excluded.base_confidence,
			deprecated = excluded.deprecated
		RETURNING id`,
		k.Text, k.Category, string(k.Priority), string(k.Difficulty),
		string(synonyms), string(relevance), k.BaseConfidence, k.Deprecated,
	).Scan(&k.ID)
	if err != nil {
		return fmt.Errorf("upserting keyword %q: %w", k.Text, sqliteConflict(err))
	}
	return nil
}

// AllMatchingRules returns rules in evaluation order.
func (s *SQLiteStore) AllMatchingRules(ctx context.Context) ([]model.MatchingRule, error) {
	rows, err := s.db.QueryContext(ctx, `
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

// AddMatchingRule inserts r; re-adding the same (pattern, type, keyword)
// updates its confidence and position instead.
func (s *SQLiteStore) AddMatchingRule(ctx context.Context, r *model.MatchingRule) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO matching_rules (pattern, match_type, keyword_id, confidence, position)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (pattern, match_type, keyword_id) DO UPDATE SET
			confidence = excluded.confidence,
			position = excluded.position
		RETURNING id`,
		r.Pattern, string(r.Type), r.KeywordID, r.Confidence, r.Position,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("adding matching rule %q: %w", r.Pattern, sqliteConflict(err))
	}
	return nil
}

// UpsertRelationship stores the canonically ordered pair, replacing count and
// strength when the pair already exists.
func (s *SQLiteStore) UpsertRelationship(ctx context.Context, idA, idB int64, count int, strength model.Strength) error {
	if idA > idB {
		idA, idB = idB, idA
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO skill_relationships (keyword_a, keyword_b, count, strength, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (keyword_a, keyword_b) DO UPDATE SET
			count = excluded.count,
			strength = excluded.strength,
			updated_at = excluded.updated_at`,
		idA, idB, count, string(strength), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting relationship %d-%d: %w", idA, idB, sqliteConflict(err))
	}
	return nil
}

// AllRelationships returns every stored pair ordered by (keyword_a, keyword_b).
func (s *SQLiteStore) AllRelationships(ctx context.Context) ([]model.SkillRelationship, error) {
	rows, err := s.db.QueryContext(ctx, `
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
		var updated any
		if err := rows.Scan(&r.KeywordA, &r.KeywordB, &r.Count, &strength, &updated); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		r.Strength = model.Strength(strength)
		r.UpdatedAt = parseSQLiteTime(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordFeedback stores one verdict.
func (s *SQLiteStore) RecordFeedback(ctx context.Context, rec model.FeedbackRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_feedback (id, analysis_id, keyword_id, matched_text, method, verdict, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.AnalysisID, rec.KeywordID, rec.MatchedText,
		string(rec.Method), string(rec.Verdict), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording feedback for analysis %s: %w", rec.AnalysisID, sqliteConflict(err))
	}
	return nil
}

// ConfirmedMatchesByAnalysis groups confirmed keyword ids by analysis.
func (s *SQLiteStore) ConfirmedMatchesByAnalysis(ctx context.Context) (map[string][]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT analysis_id, keyword_id FROM match_feedback
		WHERE verdict = ? ORDER BY analysis_id, created_at`, string(model.VerdictConfirmed))
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

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteKeyword(row rowScanner) (model.Keyword, error) {
	var k model.Keyword
	var priority, difficulty, synonyms, relevance string
	var created any
	err := row.Scan(&k.ID, &k.Text, &k.Category, &priority, &difficulty,
		&synonyms, &relevance, &k.BaseConfidence, &k.Deprecated, &created)
	if err != nil {
		return k, err
	}
	k.Priority = model.Priority(priority)
	k.Difficulty = model.Difficulty(difficulty)
	k.CreatedAt = parseSQLiteTime(created)
	if err := decodeKeywordJSON(&k, []byte(synonyms), []byte(relevance)); err != nil {
		return k, err
	}
	return k, nil
}

// parseSQLiteTime accepts the driver's time.Time or the textual
// CURRENT_TIMESTAMP format.
func parseSQLiteTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
