package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{name: "identical", a: "python", b: "python", min: 1, max: 1},
		{name: "case insensitive", a: "Python", b: "PYTHON", min: 1, max: 1},
		{name: "both empty", a: "", b: "", min: 1, max: 1},
		{name: "one empty", a: "go", b: "", min: 0, max: 0},
		{name: "transposition", a: "pyhton", b: "python", min: 0.8, max: 0.9},
		{name: "unrelated", a: "kubernetes", b: "excel", min: 0, max: 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ratio(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestRatio_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"javascript", "java"},
		{"postgres", "postgresql"},
		{"abcd", "bcda"},
		{"c++", "c#"},
	}
	for _, p := range pairs {
		assert.Equal(t, Ratio(p[0], p[1]), Ratio(p[1], p[0]), "%q vs %q", p[0], p[1])
	}
}

func TestRatio_DistinctNeverOne(t *testing.T) {
	assert.Less(t, Ratio("react", "reactjs"), 1.0)
	assert.Less(t, Ratio("go", "go "), 1.0)
}

func TestDocument_IdenticalTexts(t *testing.T) {
	score, err := Document("Senior Go engineer with Kubernetes", "senior go engineer with kubernetes")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestDocument_DisjointTexts(t *testing.T) {
	score, err := Document("python django", "accounting ledger")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestDocument_PartialOverlapInRange(t *testing.T) {
	score, err := Document("python developer with aws experience", "python developer needed for data team")
	require.NoError(t, err)
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}

func TestDocument_Degenerate(t *testing.T) {
	_, err := Document("the and of", "python developer")
	assert.ErrorIs(t, err, ErrDegenerate)

	_, err = Document("python", "   ")
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestWordOverlap(t *testing.T) {
	assert.InDelta(t, 0.5, WordOverlap("python sql", "python java"), 1e-9)
	assert.Equal(t, 1.0, WordOverlap("I know Python and Java", "python, java!"))
	assert.Equal(t, 0.0, WordOverlap("python", "the of and"))
	assert.Equal(t, 0.0, WordOverlap("", ""))
}

func TestWords_DropsStopWordsKeepsOrder(t *testing.T) {
	assert.Equal(t, []string{"build", "apis", "go"}, Words("We build the APIs in Go"))
}
