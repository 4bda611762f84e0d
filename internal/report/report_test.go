package report

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/keymatch/internal/model"
)

func ranked(texts ...string) []model.RankedKeyword {
	out := make([]model.RankedKeyword, len(texts))
	for i, text := range texts {
		out[i] = model.RankedKeyword{
			ExtractedMatch: model.ExtractedMatch{
				Keyword:     model.Keyword{ID: int64(i + 1), Text: text, Priority: model.PriorityMedium},
				MatchedText: text,
				Method:      model.MethodExact,
				Confidence:  1,
			},
			Score: 0.8,
		}
	}
	return out
}

func TestLogReporter_ReportKeywords(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, r.ReportKeywords("resume", nil))
	assert.Empty(t, buf.String())

	require.NoError(t, r.ReportKeywords("resume", ranked("python", "docker")))
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "msg=keyword"))
	assert.Contains(t, out, "keyword=python")
	assert.Contains(t, out, "rank=2")
}

func TestLogReporter_ReportComparison(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, r.ReportComparison(model.Comparison{
		Found:      ranked("python"),
		Missing:    ranked("react", "sql"),
		MatchScore: 61.25,
		Method:     "tfidf",
	}))
	out := buf.String()
	assert.Contains(t, out, "match_score=61.25")
	assert.Equal(t, 1, strings.Count(out, "found keyword"))
	assert.Equal(t, 2, strings.Count(out, "missing keyword"))
}

func TestTextReporter_ReportKeywords(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextReporter(&buf, 0)

	require.NoError(t, r.ReportKeywords("job.txt", ranked("python", "docker")))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "job.txt\n"))
	assert.Contains(t, out, "python")
	assert.Contains(t, out, "Total: 2 keywords")
}

func TestTextReporter_ReportComparisonTruncates(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextReporter(&buf, 2)

	require.NoError(t, r.ReportComparison(model.Comparison{
		Found:      ranked("python"),
		Missing:    ranked("react", "sql", "docker", "go"),
		MatchScore: 12.5,
		Method:     "word_overlap",
	}))
	out := buf.String()
	assert.Contains(t, out, "Match score: 12.50% (word_overlap)")
	assert.Contains(t, out, "Missing (4)")
	assert.Contains(t, out, "sql")
	assert.NotContains(t, out, "docker")
	assert.Contains(t, out, "... 2 more")
}
