package similarity

import (
	"errors"
	"math"
	"strings"
	"unicode"
)

// ErrDegenerate is returned by Document when either text has no usable terms
// after stop-word removal, so no meaningful vector can be built.
var ErrDegenerate = errors.New("degenerate document vector")

// Document returns the cosine similarity in [0,1] of the TF-IDF vectors of a
// and b, built over unigram and bigram terms with stop words removed. The two
// texts form the whole corpus for the IDF weights.
func Document(a, b string) (float64, error) {
	ta := terms(Words(a))
	tb := terms(Words(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0, ErrDegenerate
	}

	df := make(map[string]int, len(ta)+len(tb))
	for t := range ta {
		df[t]++
	}
	for t := range tb {
		df[t]++
	}

	va := weigh(ta, df, 2)
	vb := weigh(tb, df, 2)

	var dot, na, nb float64
	for t, w := range va {
		na += w * w
		dot += w * vb[t]
	}
	for _, w := range vb {
		nb += w * w
	}
	if na == 0 || nb == 0 {
		return 0, ErrDegenerate
	}

	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(cos) {
		return 0, ErrDegenerate
	}
	return min(max(cos, 0), 1), nil
}

// WordOverlap returns |R ∩ J| / |J| over the stop-word-free word sets of
// resume and job. It returns 0 when the job has no words.
func WordOverlap(resume, job string) float64 {
	jobWords := wordSet(job)
	if len(jobWords) == 0 {
		return 0
	}
	resumeWords := wordSet(resume)
	common := 0
	for w := range jobWords {
		if resumeWords[w] {
			common++
		}
	}
	return float64(common) / float64(len(jobWords))
}

// Words splits text on non-word characters and returns the lowercase words
// that are not stop words, in order.
func Words(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	out := fields[:0]
	for _, f := range fields {
		if StopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range Words(text) {
		set[w] = true
	}
	return set
}

// terms counts unigrams and adjacent bigrams.
func terms(words []string) map[string]float64 {
	tf := make(map[string]float64, len(words)*2)
	for i, w := range words {
		tf[w]++
		if i+1 < len(words) {
			tf[w+" "+words[i+1]]++
		}
	}
	return tf
}

// weigh applies smoothed IDF, ln((1+n)/(1+df)) + 1, to raw term counts.
func weigh(tf map[string]float64, df map[string]int, n int) map[string]float64 {
	v := make(map[string]float64, len(tf))
	for t, count := range tf {
		idf := math.Log(float64(1+n)/float64(1+df[t])) + 1
		v[t] = count * idf
	}
	return v
}
