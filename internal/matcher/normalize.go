// Package matcher turns free text into candidate terms and resolves each term
// against a taxonomy snapshot.
package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds text into the form the tokenizer expects: NFKC, lowercase,
// only letters, digits, spaces and "+#-." kept, whitespace collapsed.
func Normalize(text string) string {
	text = norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+', r == '#', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
