// Package report renders extraction and comparison results for people.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/amishk599/keymatch/internal/model"
)

// DefaultDisplayLimit caps the found and missing lists in text output.
const DefaultDisplayLimit = 20

var _ model.Reporter = (*TextReporter)(nil)

// TextReporter prints aligned tables.
type TextReporter struct {
	w            io.Writer
	displayLimit int
}

// NewTextReporter writes to w, showing at most displayLimit found and
// missing keywords. A non-positive limit uses DefaultDisplayLimit.
func NewTextReporter(w io.Writer, displayLimit int) *TextReporter {
	if displayLimit <= 0 {
		displayLimit = DefaultDisplayLimit
	}
	return &TextReporter{w: w, displayLimit: displayLimit}
}

// ReportKeywords prints the ranked keywords of one document.
func (r *TextReporter) ReportKeywords(label string, keywords []model.RankedKeyword) error {
	if label != "" {
		fmt.Fprintf(r.w, "%s\n", label)
	}
	r.table(keywords, len(keywords))
	_, err := fmt.Fprintf(r.w, "\nTotal: %d keywords\n", len(keywords))
	return err
}

// ReportComparison prints the match score followed by the found and missing tables.
func (r *TextReporter) ReportComparison(c model.Comparison) error {
	fmt.Fprintf(r.w, "Match score: %.2f%% (%s)\n\n", c.MatchScore, c.Method)

	fmt.Fprintf(r.w, "Found (%d)\n", len(c.Found))
	r.table(c.Found, r.displayLimit)

	fmt.Fprintf(r.w, "\nMissing (%d)\n", len(c.Missing))
	r.table(c.Missing, r.displayLimit)
	return nil
}

func (r *TextReporter) table(keywords []model.RankedKeyword, limit int) {
	fmt.Fprintf(r.w, "%-4s %-25s %-20s %-14s %-10s %s\n", "#", "Keyword", "Matched", "Method", "Priority", "Score")
	fmt.Fprintln(r.w, strings.Repeat("─", 82))
	for i, k := range keywords {
		if i == limit {
			fmt.Fprintf(r.w, "... %d more\n", len(keywords)-limit)
			break
		}
		fmt.Fprintf(r.w, "%-4d %-25s %-20s %-14s %-10s %.3f\n",
			i+1, k.Keyword.Text, k.MatchedText, k.Method, k.Keyword.Priority, k.Score)
	}
}
