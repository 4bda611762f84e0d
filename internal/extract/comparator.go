package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/similarity"
)

const (
	MethodTFIDF       = "tfidf"
	MethodWordOverlap = "word_overlap"
	MethodEmpty       = "empty"
)

// Comparator compares a resume with a job description.
type Comparator struct {
	pipeline *Pipeline
	opts     Options
	logger   *slog.Logger
}

// NewComparator returns a Comparator that extracts up to maxResults keywords
// from each document with the pipeline's default options otherwise.
func NewComparator(p *Pipeline, maxResults int, logger *slog.Logger) *Comparator {
	opts := p.Defaults()
	if maxResults > 0 {
		opts.MaxResults = maxResults
	} else {
		opts.MaxResults = DefaultMaxResults
	}
	return &Comparator{pipeline: p, opts: opts, logger: logger}
}

// Compare extracts keywords from both documents independently. Found holds the
// job keywords also present in the resume and Missing the rest, both in job
// order. MatchScore is the document similarity as a 0-100 percentage.
func (c *Comparator) Compare(ctx context.Context, resume, job string) model.Comparison {
	out := model.Comparison{
		Found:   []model.RankedKeyword{},
		Missing: []model.RankedKeyword{},
		Method:  MethodEmpty,
	}
	if strings.TrimSpace(job) == "" {
		return out
	}
	if strings.TrimSpace(resume) == "" {
		out.Missing = c.pipeline.Extract(ctx, job, c.opts)
		return out
	}

	var resumeKW, jobKW []model.RankedKeyword
	var g errgroup.Group
	g.Go(func() error {
		resumeKW = c.pipeline.Extract(ctx, resume, c.opts)
		return nil
	})
	g.Go(func() error {
		jobKW = c.pipeline.Extract(ctx, job, c.opts)
		return nil
	})
	_ = g.Wait()

	have := make(map[string]bool, len(resumeKW))
	for _, rk := range resumeKW {
		have[rk.Identity()] = true
	}
	for _, rk := range jobKW {
		if have[rk.Identity()] {
			out.Found = append(out.Found, rk)
		} else {
			out.Missing = append(out.Missing, rk)
		}
	}

	score, err := similarity.Document(resume, job)
	out.Method = MethodTFIDF
	if errors.Is(err, similarity.ErrDegenerate) {
		c.logger.Debug("document vectors degenerate, using word overlap")
		score = similarity.WordOverlap(resume, job)
		out.Method = MethodWordOverlap
	}
	out.MatchScore = round2(score * 100)

	c.logger.Debug("documents compared",
		"found", len(out.Found),
		"missing", len(out.Missing),
		"match_score", out.MatchScore,
		"method", out.Method,
	)
	return out
}

// Fingerprint identifies a (resume, job) pair for result caching.
func Fingerprint(resume, job string) string {
	h := sha256.New()
	h.Write([]byte(resume))
	h.Write([]byte{0})
	h.Write([]byte(job))
	return hex.EncodeToString(h.Sum(nil))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CacheKey identifies the comparison of resume and job under the current
// taxonomy, scoring weights and this comparator's options. ok is false when
// the taxonomy cannot be read; such a comparison must not be cached.
func (c *Comparator) CacheKey(ctx context.Context, resume, job string) (string, bool) {
	rev, err := c.pipeline.Revision(ctx)
	if err != nil {
		c.logger.Debug("comparison not cacheable", "error", err)
		return "", false
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%+v\x00%s", rev, c.opts, Fingerprint(resume, job))
	return hex.EncodeToString(h.Sum(nil)), true
}
