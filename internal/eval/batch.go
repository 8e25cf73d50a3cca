package eval

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/poemeval/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchProcessor evaluates many pages concurrently. Pages are pure,
// independent computations, so a parallel map produces results identical to
// a sequential loop; results are stored at their input index to preserve
// page order regardless of completion order.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Evaluator because:
//  1. It keeps the Evaluator focused on single-page evaluation
//  2. It allows different batch strategies (e.g. streaming callbacks)
//  3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// evaluator performs the per-page work. It is stateless and shared
	// across goroutines.
	evaluator *Evaluator

	// concurrency is the maximum number of pages evaluated in parallel.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent page evaluations.
// Default is 8 if not specified. A value of 1 degrades to a sequential
// loop, which is valid and produces identical results.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor around the given evaluator.
func NewBatchProcessor(evaluator *Evaluator, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		evaluator:   evaluator,
		concurrency: 8,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch evaluates all pages and returns their results in input
// order. Failed pages carry their error in the result record; the only
// error returned here is context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it is simpler and handles the concurrency limit correctly. Each
// page gets its own goroutine, but only 'concurrency' run simultaneously.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, pages []*model.PageAnnotations) ([]*model.PageResult, error) {
	bp.logger.Info("starting batch evaluation",
		"total_pages", len(pages),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocated and written at disjoint indices to maintain order.
	results := make([]*model.PageResult, len(pages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, page := range pages {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			results[i] = bp.evaluator.EvaluatePage(ctx, page)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch evaluation complete",
		"total_pages", len(pages),
		"elapsed", time.Since(startTime),
	)

	return results, err
}
