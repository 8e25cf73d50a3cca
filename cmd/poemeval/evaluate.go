package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/poemeval/internal/config"
	"github.com/nao1215/poemeval/internal/database"
	"github.com/nao1215/poemeval/internal/eval"
	"github.com/nao1215/poemeval/internal/ingest"
	"github.com/nao1215/poemeval/internal/log"
	"github.com/nao1215/poemeval/internal/model"
	"github.com/nao1215/poemeval/internal/report"
	"github.com/spf13/cobra"
)

// NewEvaluateCmd creates the evaluate command.
func NewEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "evaluate [reference-file] [system-file]",
		Aliases: []string{"eval"},
		Short:   "Score detected poem spans against reference annotations",
		Long: `Evaluate compares system-detected poem spans with reference annotations.

Both inputs are JSONL files with one page per line. For every page the
command matches each reference span to the overlapping system span with
the highest overlap factor, splits system spans that cover several
reference spans, and computes page-level precision and recall. Scores
are then macro-averaged across all pages.

Examples:
  # Evaluate a detection run
  poemeval evaluate reference.jsonl detected.jsonl

  # Ignore poem identity when matching spans
  poemeval evaluate --ignore-label reference.jsonl detected.jsonl

  # Count only exact span matches toward relevance
  poemeval evaluate --weight 0 reference.jsonl detected.jsonl

  # Write a JSON report to a file
  poemeval evaluate --json -o report.json reference.jsonl detected.jsonl

  # Use a named preset from the .poemeval config file
  poemeval evaluate -p strict reference.jsonl detected.jsonl

Configuration file (.poemeval) example:
  defaults:
    partialMatchWeight: 1.0
  profiles:
    strict:
      partialMatchWeight: 0.0
      runLabel: exact-only`,
		Args: cobra.ExactArgs(2),
		RunE: runEvaluateCmd,
	}

	// Matching behavior flags
	cmd.Flags().Bool("ignore-label", false,
		"Discard poem labels and merge overlapping reference spans before matching")
	cmd.Flags().Float64P("weight", "w", config.DefaultPartialMatchWeight,
		"Credit for partial overlaps in [0, 1]; exact matches always earn 1")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of pages evaluated in parallel")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .poemeval in current or home directory)")
	cmd.Flags().StringP("profile", "p", "",
		"Named preset from the configuration file to apply")

	// Report flags
	cmd.Flags().Bool("csv", false,
		"Output CSV report with one row per page")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --csv and --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --csv and --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Persistence flags
	cmd.Flags().Bool("no-save", false,
		"Do not persist this run to the local database")
	cmd.Flags().String("run-label", "",
		"Free-form tag stored with the persisted run")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runEvaluateCmd executes the evaluate command.
func runEvaluateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildEvalConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runEvaluate(ctx, cmd, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildEvalConfig creates a Config from cobra command flags and the
// optional configuration file. Precedence from weakest to strongest:
// built-in defaults, file defaults, the named profile, CLI flags.
func buildEvalConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ReferenceFile = args[0]
	cfg.SystemFile = args[1]
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.Profile, err = cmd.Flags().GetString("profile")
	if err != nil {
		return nil, err
	}

	// Load presets from the config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.Profiles, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.Profiles = &config.File{Profiles: make(map[string]config.Profile)}
	}

	if cfg.Profile != "" {
		if _, ok := cfg.Profiles.Profiles[cfg.Profile]; !ok {
			return nil, fmt.Errorf("profile %q not found in configuration file", cfg.Profile)
		}
	}
	cfg.Apply(cfg.Profiles.GetProfile(cfg.Profile))

	// CLI flags win over the file, but only when actually given.
	if cmd.Flags().Changed("ignore-label") {
		cfg.IgnoreLabel, err = cmd.Flags().GetBool("ignore-label")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("weight") {
		cfg.PartialMatchWeight, err = cmd.Flags().GetFloat64("weight")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("run-label") {
		cfg.RunLabel, err = cmd.Flags().GetString("run-label")
		if err != nil {
			return nil, err
		}
	}

	cfg.CSVReport, err = cmd.Flags().GetBool("csv")
	if err != nil {
		return nil, err
	}
	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}
	cfg.SaveToDB = !noSave

	return cfg, nil
}

// runEvaluate executes the evaluation.
func runEvaluate(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting evaluation",
		"reference", cfg.ReferenceFile,
		"system", cfg.SystemFile,
		"ignoreLabel", cfg.IgnoreLabel,
		"partialMatchWeight", cfg.PartialMatchWeight,
		"concurrency", cfg.Concurrency,
		"saveToDB", cfg.SaveToDB,
	)

	reader := ingest.NewReader(ingest.WithReaderLogger(logger))
	pages, err := reader.ReadPages(cfg.ReferenceFile, cfg.SystemFile)
	if err != nil {
		return fmt.Errorf("failed to read annotations: %w", err)
	}
	logger.Info("annotations loaded", "pages", len(pages))

	evaluator := eval.NewEvaluator(
		eval.WithIgnoreLabel(cfg.IgnoreLabel),
		eval.WithPartialMatchWeight(cfg.PartialMatchWeight),
		eval.WithEvaluatorLogger(logger),
	)
	processor := eval.NewBatchProcessor(evaluator,
		eval.WithConcurrency(cfg.Concurrency),
		eval.WithBatchLogger(logger),
	)

	results, err := processor.ProcessBatch(ctx, pages)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	evalReport := model.NewEvalReport(
		cfg.ReferenceFile, cfg.SystemFile,
		cfg.IgnoreLabel, cfg.PartialMatchWeight,
		results,
	)

	if err := writeReport(cmd.OutOrStdout(), cfg, evalReport); err != nil {
		return err
	}

	if cfg.SaveToDB {
		if err := saveRun(ctx, cfg, evalReport, logger); err != nil {
			// A failed save should not invalidate a completed evaluation.
			logger.Error("failed to save run", "error", err)
		}
	}

	return nil
}

// writeReport writes the report to stdout or the configured output file
// using the selected format.
func writeReport(stdout io.Writer, cfg *config.Config, evalReport *model.EvalReport) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.Create(cfg.ReportFile) //nolint:gosec // User-provided output path is intentional
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close() //nolint:errcheck // Report bytes are flushed by the writer below
		output = f
	}

	var w report.Writer
	switch {
	case cfg.CSVReport:
		w = report.NewCSVWriter(output)
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if _, err := w.Write(evalReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// saveRun persists the evaluation run for later comparison.
func saveRun(ctx context.Context, cfg *config.Config, evalReport *model.EvalReport, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Read-only close after commit

	id, err := db.SaveRun(ctx, evalReport, cfg.RunLabel)
	if err != nil {
		return err
	}
	logger.Info("run saved", "id", id, "dir", cfg.DBDir)
	return nil
}
