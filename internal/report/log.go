package report

import (
	"log/slog"

	"github.com/amishk599/keymatch/internal/model"
)

// Ensure LogReporter implements model.Reporter.
var _ model.Reporter = (*LogReporter)(nil)

// LogReporter writes results to the given logger as structured messages.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a reporter that logs each keyword via slog.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// ReportKeywords logs one line per keyword.
func (r *LogReporter) ReportKeywords(label string, keywords []model.RankedKeyword) error {
	for i, k := range keywords {
		r.logger.Info("keyword",
			"document", label,
			"rank", i+1,
			"keyword", k.Keyword.Text,
			"matched", k.MatchedText,
			"method", k.Method,
			"confidence", k.Confidence,
			"score", k.Score,
		)
	}
	return nil
}

// ReportComparison logs the match score and every found and missing keyword.
func (r *LogReporter) ReportComparison(c model.Comparison) error {
	r.logger.Info("comparison",
		"match_score", c.MatchScore,
		"method", c.Method,
		"found", len(c.Found),
		"missing", len(c.Missing),
	)
	for _, k := range c.Found {
		r.logger.Info("found keyword", "keyword", k.Keyword.Text, "score", k.Score)
	}
	for _, k := range c.Missing {
		r.logger.Info("missing keyword", "keyword", k.Keyword.Text, "priority", k.Keyword.Priority, "score", k.Score)
	}
	return nil
}
