// Package worker consumes comparison requests from RabbitMQ and publishes the
// results to a reply queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/keymatch/internal/cache"
	"github.com/amishk599/keymatch/internal/model"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Request is the message body read from the request queue.
type Request struct {
	ID     string `json:"id"`
	Resume string `json:"resume"`
	Job    string `json:"job"`
}

// Result is the message body written to the result queue.
type Result struct {
	RequestID  string            `json:"request_id"`
	Status     string            `json:"status"`
	Comparison *model.Comparison `json:"comparison,omitempty"`
	Error      string            `json:"error,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Processor turns one raw request body into a Result.
type Processor struct {
	comparer cache.Comparer
	logger   *slog.Logger
	now      func() time.Time
}

// NewProcessor returns a Processor comparing documents with comparer.
func NewProcessor(comparer cache.Comparer, logger *slog.Logger) *Processor {
	return &Processor{comparer: comparer, logger: logger, now: time.Now}
}

// Process decodes body and runs the comparison. Malformed requests produce a
// failed Result rather than an error so they can be reported to the caller.
func (p *Processor) Process(ctx context.Context, body []byte) Result {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		p.logger.Warn("discarding malformed compare request", "error", err)
		return Result{Status: StatusFailed, Error: fmt.Sprintf("decoding request: %v", err), Timestamp: p.now()}
	}
	if strings.TrimSpace(req.ID) == "" {
		return Result{Status: StatusFailed, Error: "request id is required", Timestamp: p.now()}
	}

	start := p.now()
	cmp := p.comparer.Compare(ctx, req.Resume, req.Job)
	p.logger.Info("compare request processed",
		"request_id", req.ID,
		"found", len(cmp.Found),
		"missing", len(cmp.Missing),
		"match_score", cmp.MatchScore,
		"took", p.now().Sub(start),
	)
	return Result{RequestID: req.ID, Status: StatusCompleted, Comparison: &cmp, Timestamp: p.now()}
}
