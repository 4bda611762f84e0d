// Package extract runs the keyword extraction pipeline over documents and
// compares a resume against a job description.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/keymatch/internal/matcher"
	"github.com/amishk599/keymatch/internal/model"
	"github.com/amishk599/keymatch/internal/scorer"
	"github.com/amishk599/keymatch/internal/taxonomy"
)

const (
	DefaultMaxResults = 30
	DefaultMinScore   = 0.4
)

// Options tune one extraction. MaxResults and MinScore are used as given, so
// start from DefaultOptions or Pipeline.Defaults.
type Options struct {
	JobRole        string
	Industry       string
	MaxResults     int
	MinScore       float64
	FuzzyThreshold float64
}

// DefaultOptions returns the standard extraction options.
func DefaultOptions() Options {
	return Options{
		MaxResults:     DefaultMaxResults,
		MinScore:       DefaultMinScore,
		FuzzyThreshold: matcher.DefaultFuzzyThreshold,
	}
}

// SnapshotSource supplies the current taxonomy snapshot.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*taxonomy.Snapshot, error)
}

// Pipeline extracts ranked keywords from free text. It is safe for concurrent
// use; compiled rules are reused for as long as the snapshot is unchanged.
type Pipeline struct {
	src      SnapshotSource
	scorer   *scorer.Scorer
	defaults Options
	logger   *slog.Logger

	mu        sync.Mutex
	rulesSnap *taxonomy.Snapshot
	rules     *matcher.RuleSet
}

// NewPipeline creates a Pipeline reading snapshots from src.
func NewPipeline(src SnapshotSource, sc *scorer.Scorer, defaults Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		src:      src,
		scorer:   sc,
		defaults: defaults,
		logger:   logger,
	}
}

// Defaults returns the options the pipeline was configured with.
func (p *Pipeline) Defaults() Options { return p.defaults }

// Revision identifies everything besides the input text and options that
// determines Extract's output: the current taxonomy content and the scoring
// weights. It changes after any taxonomy write the source has observed.
func (p *Pipeline) Revision(ctx context.Context) (string, error) {
	snap, err := p.src.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("load taxonomy snapshot: %w", err)
	}
	return fmt.Sprintf("%s|%+v", snap.Digest(), p.scorer.Weights()), nil
}

// Extract returns the ranked keywords of text: matched, deduplicated by
// keyword, scored, sorted by descending score (ties keep first-seen order),
// filtered by MinScore and truncated to MaxResults. A taxonomy lookup failure
// is logged and yields an empty result.
func (p *Pipeline) Extract(ctx context.Context, text string, opts Options) []model.RankedKeyword {
	if opts.MaxResults <= 0 {
		return []model.RankedKeyword{}
	}

	snap, err := p.src.Snapshot(ctx)
	if err != nil {
		var lookupErr *model.LookupError
		if errors.As(err, &lookupErr) {
			p.logger.Error("taxonomy lookup failed, returning no keywords", "op", lookupErr.Op, "error", lookupErr.Err)
		} else {
			p.logger.Error("taxonomy lookup failed, returning no keywords", "error", err)
		}
		return []model.RankedKeyword{}
	}

	m := matcher.New(snap, p.rulesFor(snap), opts.FuzzyThreshold)
	sctx := scorer.Context{JobRole: opts.JobRole, Industry: opts.Industry}

	seen := make(map[string]bool)
	var ranked []model.RankedKeyword
	tokens := matcher.Tokenize(matcher.Normalize(text), snap)
	for tok, ok := tokens.Next(); ok; tok, ok = tokens.Next() {
		match, ok := m.Match(tok)
		if !ok {
			continue
		}
		rk := model.RankedKeyword{ExtractedMatch: match}
		if seen[rk.Identity()] {
			continue
		}
		seen[rk.Identity()] = true
		rk.Score = p.scorer.Score(match, sctx)
		ranked = append(ranked, rk)
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	out := make([]model.RankedKeyword, 0, min(len(ranked), opts.MaxResults))
	for _, rk := range ranked {
		if rk.Score < opts.MinScore {
			continue
		}
		if len(out) == opts.MaxResults {
			break
		}
		out = append(out, rk)
	}

	p.logger.Debug("keywords extracted",
		"matched", len(ranked),
		"returned", len(out),
		"snapshot_loaded_at", snap.LoadedAt(),
	)
	return out
}

// rulesFor returns the compiled rules for snap, compiling once per snapshot.
func (p *Pipeline) rulesFor(snap *taxonomy.Snapshot) *matcher.RuleSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rulesSnap != snap {
		p.rules = matcher.CompileRules(snap, p.logger)
		p.rulesSnap = snap
	}
	return p.rules
}

// ExtractBatch extracts every text concurrently with at most workers
// extractions in flight. Results are in input order. It only fails when ctx
// is cancelled.
func (p *Pipeline) ExtractBatch(ctx context.Context, texts []string, opts Options, workers int) ([][]model.RankedKeyword, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([][]model.RankedKeyword, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, text := range texts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.Extract(gctx, text, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch extraction: %w", err)
	}
	return results, nil
}
