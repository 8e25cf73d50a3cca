package eval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/poemeval/internal/model"
)

// Evaluator evaluates pages against a fixed configuration. It holds no
// per-page state, so a single Evaluator is safe to share across goroutines;
// differing configurations across runs simply use separate Evaluators.
type Evaluator struct {
	// ignoreLabel disables poem-identity checks and enables the
	// preprocessing stage.
	ignoreLabel bool

	// partialMatchWeight scales partial-match credit, in [0, 1].
	partialMatchWeight float64

	// logger for structured logging.
	logger *slog.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithIgnoreLabel configures the evaluator to ignore poem labels.
// System spans are then merged into disjoint runs before matching.
func WithIgnoreLabel(ignore bool) EvaluatorOption {
	return func(e *Evaluator) {
		e.ignoreLabel = ignore
	}
}

// WithPartialMatchWeight sets the weight applied to partial-match credit.
// The default is 1.0 (no extra penalty beyond the overlap factor).
func WithPartialMatchWeight(w float64) EvaluatorOption {
	return func(e *Evaluator) {
		e.partialMatchWeight = w
	}
}

// WithEvaluatorLogger sets a custom logger for the evaluator.
func WithEvaluatorLogger(logger *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// NewEvaluator creates an Evaluator with the given options.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		partialMatchWeight: 1.0,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// EvaluatePage evaluates one page and always returns a result record:
// either the page's scores, or, when the page's input is malformed or a
// stage fails, a result carrying the error. A failed page never aborts the
// surrounding batch; the caller decides whether to skip, log, or stop.
func (e *Evaluator) EvaluatePage(ctx context.Context, page *model.PageAnnotations) *model.PageResult {
	if err := validateSpans(page); err != nil {
		e.logger.Warn("rejecting malformed page",
			"page", page.PageID,
			"error", err,
		)
		return &model.PageResult{PageID: page.PageID, Error: err.Error()}
	}

	ev := &Evaluation{
		PageID:         page.PageID,
		IgnoreLabel:    e.ignoreLabel,
		ReferenceSpans: page.ReferenceSpans,
		SystemSpans:    page.SystemSpans,
	}

	pipeline := DefaultPipeline(e.ignoreLabel, e.partialMatchWeight, WithLogger(e.logger))
	if err := pipeline.Execute(ctx, ev); err != nil {
		return &model.PageResult{PageID: page.PageID, Error: err.Error()}
	}

	return ev.Result
}

// validateSpans defensively re-checks every span on the page. Ingestion
// already rejects malformed records, but the evaluator reports rather than
// silently miscomputes when handed bad spans directly.
func validateSpans(page *model.PageAnnotations) error {
	for _, span := range page.ReferenceSpans {
		if _, err := model.NewSpan(span.Start, span.End, span.Label); err != nil {
			return fmt.Errorf("reference span %s: %w", span, err)
		}
	}
	for _, span := range page.SystemSpans {
		if _, err := model.NewSpan(span.Start, span.End, span.Label); err != nil {
			return fmt.Errorf("system span %s: %w", span, err)
		}
	}
	return nil
}
