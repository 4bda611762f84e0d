package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/keymatch/internal/model"
)

const postgresURLEnv = "KEYMATCH_TEST_POSTGRES_URL"

// newPostgresTestStore connects to the database named by
// KEYMATCH_TEST_POSTGRES_URL and empties every table. The database is
// assumed to be disposable.
func newPostgresTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv(postgresURLEnv)
	if url == "" {
		t.Skipf("%s not set", postgresURLEnv)
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.pool.Exec(ctx, `TRUNCATE keywords, matching_rules, skill_relationships, match_feedback RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return s
}

func TestPostgresStorePersistsAcrossReconnect(t *testing.T) {
	ctx := context.Background()
	s := newPostgresTestStore(t)

	k := &model.Keyword{Text: "terraform", Category: "devops", Priority: model.PriorityImportant, Difficulty: model.DifficultyIntermediate, BaseConfidence: 1}
	require.NoError(t, s.UpsertKeyword(ctx, k))

	s2, err := NewPostgresStore(ctx, os.Getenv(postgresURLEnv))
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.KeywordByText(ctx, "terraform")
	require.NoError(t, err)
	assert.Equal(t, k.ID, got.ID)
}

func TestPostgresRejectsUnknownRuleKeyword(t *testing.T) {
	ctx := context.Background()
	s := newPostgresTestStore(t)

	err := s.AddMatchingRule(ctx, &model.MatchingRule{Pattern: "py", Type: model.MatchSubstring, KeywordID: 999, Confidence: 0.9})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestPgConflictClassifiesBySQLState(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	assert.ErrorIs(t, pgConflict(unique), model.ErrConflict)

	var pe *pgconn.PgError
	require.ErrorAs(t, pgConflict(unique), &pe)
	assert.Equal(t, "23505", pe.Code)

	serialization := &pgconn.PgError{Code: "40001"}
	assert.NotErrorIs(t, pgConflict(serialization), model.ErrConflict)

	plain := errors.New("connection reset")
	assert.Same(t, plain, pgConflict(plain))
}
