package eval

import (
	"context"
	"log/slog"

	"github.com/nao1215/poemeval/internal/model"
)

// Evaluation is the working state of one page's evaluation as it moves
// through the pipeline stages. Steps fill in successive fields; nothing is
// shared between pages.
type Evaluation struct {
	// PageID identifies the page under evaluation.
	PageID string

	// IgnoreLabel records whether poem labels are ignored for this run.
	IgnoreLabel bool

	// ReferenceSpans and SystemSpans are the page's working span
	// collections, sorted by (start, end). SystemSpans is replaced by its
	// merged form when the preprocessing stage runs.
	ReferenceSpans []model.Span
	SystemSpans    []model.Span

	// RefToSys maps each reference span index to the index of its
	// selected system span, or -1 for a miss. Filled by the match stage.
	RefToSys []int

	// SysToRefs maps each system span index to the reference span indices
	// that selected it, in reference order. Filled by the match stage.
	SysToRefs [][]int

	// Pairs holds the working reference–system span pairs after the split
	// stage. System spans selected by several reference spans appear here
	// as sub-spans.
	Pairs []SpanPair

	// Result is the page's final result record, filled by the score
	// stage.
	Result *model.PageResult

	// CompletedStages lists the names of the stages that have run, in
	// order. Used for logging and tests.
	CompletedStages []string
}

// SpanPair associates a reference span with the (possibly split) system
// span it is scored against.
type SpanPair struct {
	Reference model.Span
	System    model.Span
}

// Step is one stage of the per-page evaluation pipeline. Stages are
// executed in sequence, each operating on the accumulated Evaluation state.
//
// Design decision: We use an interface rather than function types because:
//  1. It allows stages to carry configuration state
//  2. It provides a Name() method for logging and debugging
//  3. It matches how the batch layer composes per-page work
type Step interface {
	// Do executes the stage, mutating the evaluation state.
	// An error aborts this page's evaluation; it is recorded on the
	// page's result and never fails the batch.
	Do(ctx context.Context, ev *Evaluation) error

	// Name returns the stage's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of the evaluation stages for one
// page. It is strictly linear: no branching, no retries, each stage runs
// exactly once.
type Pipeline struct {
	// steps contains the ordered list of stages to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Stages should be added using AddStep after creation, or use
// DefaultPipeline for the standard evaluation sequence.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a stage to the pipeline.
// Stages are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple stages to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepCount returns the number of stages in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all stages in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs all stages in sequence on the given evaluation state.
// It returns the first stage error, which aborts the page; the caller
// records the error on the page's result and continues with other pages.
func (p *Pipeline) Execute(ctx context.Context, ev *Evaluation) error {
	for _, step := range p.steps {
		// Check for cancellation before each stage; stages themselves
		// are pure in-memory computation and never block.
		select {
		case <-ctx.Done():
			p.logger.Warn("evaluation cancelled",
				"stage", step.Name(),
				"page", ev.PageID,
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing stage",
			"stage", step.Name(),
			"page", ev.PageID,
		)

		if err := step.Do(ctx, ev); err != nil {
			p.logger.Error("stage failed",
				"stage", step.Name(),
				"page", ev.PageID,
				"error", err,
			)
			return err
		}

		ev.CompletedStages = append(ev.CompletedStages, step.Name())
	}

	return nil
}

// DefaultPipeline creates a pipeline with the standard evaluation stages in
// order: preprocess (only when poem labels are ignored), match, split,
// score.
//
// Design decision: the preprocess stage is omitted entirely in label-aware
// mode rather than made a no-op, so StepNames reflects exactly what will
// run for a given configuration.
func DefaultPipeline(ignoreLabel bool, partialMatchWeight float64, opts ...Option) *Pipeline {
	p := New(opts...)

	if ignoreLabel {
		p.AddStep(&PreprocessStep{})
	}
	p.AddSteps(
		&MatchStep{},
		&SplitStep{},
		&ScoreStep{PartialMatchWeight: partialMatchWeight},
	)

	return p
}
