package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/keymatch/internal/model"
)

var _ model.Store = (*RetryStore)(nil)

// RetryStore is a decorator that retries transient store failures with
// exponential backoff and jitter before giving up.
type RetryStore struct {
	inner      model.Store
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryStore wraps a Store with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryStore(inner model.Store, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryStore {
	return &RetryStore{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// do runs fn, retrying on transient errors.
func (s *RetryStore) do(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if !isRetryable(err) {
		return err
	}

	lastErr := err
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		delay := s.backoffDelay(attempt)

		s.logger.Warn("retrying store operation after transient error",
			"op", op,
			"attempt", attempt,
			"max_retries", s.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		err = fn()
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (s *RetryStore) AllKeywords(ctx context.Context, filter model.KeywordFilter) ([]model.Keyword, error) {
	var out []model.Keyword
	err := s.do(ctx, "all keywords", func() error {
		var err error
		out, err = s.inner.AllKeywords(ctx, filter)
		return err
	})
	return out, err
}

func (s *RetryStore) KeywordByText(ctx context.Context, text string) (*model.Keyword, error) {
	var out *model.Keyword
	err := s.do(ctx, "keyword by text", func() error {
		var err error
		out, err = s.inner.KeywordByText(ctx, text)
		return err
	})
	return out, err
}

func (s *RetryStore) KeywordByID(ctx context.Context, id int64) (*model.Keyword, error) {
	var out *model.Keyword
	err := s.do(ctx, "keyword by id", func() error {
		var err error
		out, err = s.inner.KeywordByID(ctx, id)
		return err
	})
	return out, err
}

func (s *RetryStore) UpsertKeyword(ctx context.Context, k *model.Keyword) error {
	return s.do(ctx, "upsert keyword", func() error {
		return s.inner.UpsertKeyword(ctx, k)
	})
}

func (s *RetryStore) AllMatchingRules(ctx context.Context) ([]model.MatchingRule, error) {
	var out []model.MatchingRule
	err := s.do(ctx, "matching rules", func() error {
		var err error
		out, err = s.inner.AllMatchingRules(ctx)
		return err
	})
	return out, err
}

func (s *RetryStore) AddMatchingRule(ctx context.Context, r *model.MatchingRule) error {
	return s.do(ctx, "add matching rule", func() error {
		return s.inner.AddMatchingRule(ctx, r)
	})
}

func (s *RetryStore) UpsertRelationship(ctx context.Context, idA, idB int64, count int, strength model.Strength) error {
	return s.do(ctx, "upsert relationship", func() error {
		return s.inner.UpsertRelationship(ctx, idA, idB, count, strength)
	})
}

func (s *RetryStore) AllRelationships(ctx context.Context) ([]model.SkillRelationship, error) {
	var out []model.SkillRelationship
	err := s.do(ctx, "all relationships", func() error {
		var err error
		out, err = s.inner.AllRelationships(ctx)
		return err
	})
	return out, err
}

func (s *RetryStore) RecordFeedback(ctx context.Context, rec model.FeedbackRecord) error {
	return s.do(ctx, "record feedback", func() error {
		return s.inner.RecordFeedback(ctx, rec)
	})
}

func (s *RetryStore) ConfirmedMatchesByAnalysis(ctx context.Context) (map[string][]int64, error) {
	var out map[string][]int64
	err := s.do(ctx, "confirmed matches", func() error {
		var err error
		out, err = s.inner.ConfirmedMatchesByAnalysis(ctx)
		return err
	})
	return out, err
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
func (s *RetryStore) backoffDelay(attempt int) time.Duration {
	delay := s.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable reports whether err is a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// A missing row will still be missing on the next attempt.
	if errors.Is(err, model.ErrNotFound) {
		return false
	}
	// Neither will a constraint violation.
	if errors.Is(err, model.ErrConflict) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
