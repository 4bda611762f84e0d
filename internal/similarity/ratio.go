// Package similarity provides the string and document similarity measures used
// by the matcher, the scorer and the comparator.
package similarity

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the Ratcliff/Obershelp similarity of a and b in [0,1],
// compared case-insensitively. It is symmetric and reaches 1.0 only for
// identical strings.
func Ratio(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1.0
	}
	ra, rb := runeStrings(a), runeStrings(b)
	// SequenceMatcher is order-sensitive on ties between matching blocks;
	// taking the larger of both directions keeps Ratio(a, b) == Ratio(b, a).
	forward := difflib.NewMatcherWithJunk(ra, rb, false, nil).Ratio()
	backward := difflib.NewMatcherWithJunk(rb, ra, false, nil).Ratio()
	return max(forward, backward)
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
