package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values mirror the behavior annotation projects expect out of the
// box: full credit for partial overlaps and label-aware matching.
const (
	// DefaultPartialMatchWeight of 1.0 means a partial overlap earns its
	// full overlap factor. Values below 1 discount partial matches relative
	// to exact ones; 0 means only exact matches count toward relevance.
	DefaultPartialMatchWeight = 1.0

	// DefaultConcurrency of 8 concurrent page evaluations balances
	// throughput with memory usage. Page evaluation is CPU-bound and cheap,
	// so a modest fixed limit works well even for corpora with hundreds of
	// thousands of pages.
	DefaultConcurrency = 8

	// AppName is the application name used for XDG directory paths.
	AppName = "poemeval"
)

// Config holds all configuration options for poemeval.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., EvalConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// ReferenceFile is the path to the JSONL file holding the reference
	// (ground truth) page annotations.
	ReferenceFile string

	// SystemFile is the path to the JSONL file holding the system
	// (detected) page annotations to evaluate against the reference.
	SystemFile string

	// IgnoreLabel disables label-aware matching. When true, span labels are
	// discarded, overlapping reference spans are merged before matching,
	// and a system span may pair with a reference span of any label.
	IgnoreLabel bool

	// PartialMatchWeight scales the credit awarded to partial overlaps.
	// Must be in [0, 1]. Exact matches always earn 1 regardless of weight.
	PartialMatchWeight float64

	// Concurrency is the number of pages evaluated in parallel.
	Concurrency int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .poemeval in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// Profiles holds named evaluation presets loaded from the config file.
	// This is populated by LoadConfigFile and applied before CLI flags.
	Profiles *File

	// Profile is the name of the preset from the config file to apply.
	Profile string

	// CSVReport enables CSV report output with one row per page.
	// Mutually exclusive with JSONReport and MarkdownReport.
	CSVReport bool

	// JSONReport enables JSON report output instead of human-readable format.
	// When true, outputs the full report with per-page detail.
	// Mutually exclusive with CSVReport and MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable
	// format. When true, outputs GitHub Flavored Markdown with tables and a
	// pie chart of match outcomes.
	// Mutually exclusive with CSVReport and JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the SQLite database.
	// When set, evaluation runs are saved to the database for historical
	// comparison. When empty, runs are not persisted.
	// Defaults to XDG data directory (~/.local/share/poemeval on Linux).
	DBDir string

	// SaveToDB indicates whether to save evaluation runs to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool

	// RunLabel is an optional free-form tag stored with a persisted run,
	// useful for telling model versions apart in `poemeval compare`.
	RunLabel string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because some defaults are non-zero (weight, concurrency).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		PartialMatchWeight: DefaultPartialMatchWeight,
		Concurrency:        DefaultConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for poemeval.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/poemeval
// On macOS: ~/Library/Application Support/poemeval
// On Windows: %LOCALAPPDATA%\poemeval
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for poemeval.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/poemeval
// On macOS: ~/Library/Application Support/poemeval
// On Windows: %APPDATA%\poemeval
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any evaluation begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.ReferenceFile == "" {
		return ErrNoReferenceFile
	}

	if c.SystemFile == "" {
		return ErrNoSystemFile
	}

	// Weights above 1 would reward partial matches more than exact ones.
	if c.PartialMatchWeight < 0 || c.PartialMatchWeight > 1 {
		return ErrInvalidPartialWeight
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	// The report formats are mutually exclusive.
	formats := 0
	for _, enabled := range []bool{c.CSVReport, c.JSONReport, c.MarkdownReport} {
		if enabled {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	return nil
}
