package matcher

import "strings"

// Vocabulary answers whether a phrase is a known canonical keyword. It is
// satisfied by *taxonomy.Snapshot.
type Vocabulary interface {
	Has(text string) bool
}

// TokenSeq is a finite, restartable sequence of candidate terms. Bigrams are
// resolved lazily as the sequence is consumed.
type TokenSeq struct {
	words []string
	vocab Vocabulary
	pos   int
}

// Tokenize splits normalized text into candidate terms. Adjacent words are
// joined when the vocabulary knows the two-word phrase; the pass is greedy and
// left to right, so "a b c" with known "a b" and "b c" yields "a b", "c".
func Tokenize(normalized string, vocab Vocabulary) *TokenSeq {
	fields := strings.Fields(normalized)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		// "experience." at the end of a sentence is "experience".
		if w := strings.TrimRight(f, "."); w != "" {
			words = append(words, w)
		}
	}
	return &TokenSeq{words: words, vocab: vocab}
}

// Next returns the next term, or false when the sequence is exhausted.
func (t *TokenSeq) Next() (string, bool) {
	if t.pos >= len(t.words) {
		return "", false
	}
	if t.pos+1 < len(t.words) && t.vocab != nil {
		bigram := t.words[t.pos] + " " + t.words[t.pos+1]
		if t.vocab.Has(bigram) {
			t.pos += 2
			return bigram, true
		}
	}
	w := t.words[t.pos]
	t.pos++
	return w, true
}

// Reset rewinds the sequence to its first term.
func (t *TokenSeq) Reset() { t.pos = 0 }

// All drains a fresh pass over the sequence. The position is left at the end.
func (t *TokenSeq) All() []string {
	t.Reset()
	var out []string
	for {
		tok, ok := t.Next()
		if !ok {
			return out
		}
		out = append(out, tok)
	}
}
