package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoReferenceFile is returned when no reference annotation file is
	// specified. Evaluation needs ground truth to compare against.
	ErrNoReferenceFile = errors.New("no reference file specified")

	// ErrNoSystemFile is returned when no system annotation file is
	// specified. Evaluation needs detections to score.
	ErrNoSystemFile = errors.New("no system file specified")

	// ErrInvalidPartialWeight is returned when the partial match weight
	// lies outside [0, 1]. Weights above 1 would reward partial matches
	// more than exact ones; negative weights would subtract credit.
	ErrInvalidPartialWeight = errors.New("invalid partial match weight: must be in [0, 1]")

	// ErrInvalidConcurrency is returned when the concurrency is not
	// positive. Zero concurrent evaluations would never finish.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when more than one of
	// --csv, --json, and --markdown is specified. Only one output format
	// can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: use at most one of --csv, --json, --markdown")
)
