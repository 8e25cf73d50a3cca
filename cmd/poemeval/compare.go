package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/poemeval/internal/config"
	"github.com/nao1215/poemeval/internal/database"
	"github.com/spf13/cobra"
)

// Deltas smaller than this are treated as unchanged. Page scores are
// ratios of small integers, so genuine changes are far larger.
const deltaEpsilon = 1e-9

// maxShownPages caps the per-page listing in text output.
const maxShownPages = 20

// NewCompareCmd creates the compare command.
// This command compares stored evaluation runs page by page.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [run-id] [run-id]",
		Short: "Compare two stored evaluation runs",
		Long: `Compare shows per-page score differences between two stored runs.

Every 'poemeval evaluate' invocation saves its results to a local database
unless --no-save is given. This command joins two stored runs on page ID
and reports which pages improved, which regressed, and by how much,
making it easy to tell whether a new model version is actually better.

Examples:
  # List stored runs and their IDs
  poemeval compare --list

  # Compare the two most recent runs
  poemeval compare

  # Compare run 3 (baseline) with run 7 (candidate)
  poemeval compare 3 7

  # Output the comparison in JSON format
  poemeval compare --json 3 7`,
		Args: cobra.MaximumNArgs(2),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored evaluation runs")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database so a usage error
	// does not leave a database file behind. No arguments means "compare
	// the two most recent runs"; the IDs are resolved after opening.
	var runA, runB int64
	haveIDs := len(args) == 2
	if !list {
		if len(args) == 1 {
			return errors.New("give two run IDs or none for the latest two (use --list to see stored runs)")
		}
		if haveIDs {
			runA, err = strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run ID %q: %w", args[0], err)
			}
			runB, err = strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run ID %q: %w", args[1], err)
			}
		}
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open database (run 'poemeval evaluate' first): %w", err)
	}
	defer db.Close() //nolint:errcheck // Read-only access

	ctx := cmd.Context()

	if list {
		return listRuns(ctx, cmd.OutOrStdout(), db)
	}

	if !haveIDs {
		runA, runB, err = latestTwoRuns(ctx, db)
		if err != nil {
			return err
		}
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	return runComparison(ctx, cmd.OutOrStdout(), db, runA, runB, jsonOutput)
}

// latestTwoRuns resolves the default comparison: the second most recent
// run as baseline against the most recent.
func latestTwoRuns(ctx context.Context, db *database.RunDB) (runA, runB int64, err error) {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) < 2 {
		return 0, 0, fmt.Errorf("at least 2 stored runs are required for comparison (found %d)", len(runs))
	}
	return runs[1].ID, runs[0].ID, nil
}

// listRuns prints the stored run history, newest first.
func listRuns(ctx context.Context, out io.Writer, db *database.RunDB) error {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No stored runs found in the database.")
		fmt.Fprintln(out, "\nUse 'poemeval evaluate' to evaluate and save a run.")
		return nil
	}

	fmt.Fprintf(out, "Stored runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-10s  %-10s  %-7s  %s\n",
		"ID", "Date", "Precision", "Recall", "Pages", "Label")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, meta := range runs {
		label := meta.RunLabel
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-10.4f  %-10.4f  %-7d  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			meta.MacroPrecision,
			meta.MacroRecall,
			meta.PagesEvaluated,
			label,
		)
	}

	fmt.Fprintln(out, "\nUse 'poemeval compare <id> <id>' to compare two runs page by page.")
	return nil
}

// ComparisonResult holds the result of comparing two evaluation runs.
type ComparisonResult struct {
	// RunA describes the baseline run.
	RunA RunSummary `json:"run_a"`

	// RunB describes the candidate run.
	RunB RunSummary `json:"run_b"`

	// PagesCompared counts pages present and scored in both runs.
	PagesCompared int `json:"pages_compared"`

	// Improved, Regressed, and Unchanged partition the compared pages by
	// the direction of their precision/recall movement.
	Improved  int `json:"improved"`
	Regressed int `json:"regressed"`
	Unchanged int `json:"unchanged"`

	// Changes lists the pages whose scores moved, largest movement first.
	Changes []PageChange `json:"changes,omitempty"`
}

// RunSummary contains metadata about one side of a comparison.
type RunSummary struct {
	// ID is the run's identifier in the database.
	ID int64 `json:"id"`

	// RunLabel is the tag given at save time, if any.
	RunLabel string `json:"run_label,omitempty"`

	// Timestamp is when the run was saved.
	Timestamp time.Time `json:"timestamp"`

	// MacroPrecision and MacroRecall are the run's aggregate scores.
	MacroPrecision float64 `json:"macro_precision"`
	MacroRecall    float64 `json:"macro_recall"`
}

// PageChange is one page whose scores differ between the runs.
type PageChange struct {
	// PageID identifies the page.
	PageID string `json:"page_id"`

	// PrecisionDelta and RecallDelta are run B's scores minus run A's.
	PrecisionDelta float64 `json:"precision_delta"`
	RecallDelta    float64 `json:"recall_delta"`
}

// magnitude orders changes by their total movement.
func (c *PageChange) magnitude() float64 {
	return math.Abs(c.PrecisionDelta) + math.Abs(c.RecallDelta)
}

// runComparison performs the comparison between two stored runs.
func runComparison(ctx context.Context, out io.Writer, db *database.RunDB, runA, runB int64, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	result := &ComparisonResult{}
	foundA, foundB := false, false
	for _, meta := range runs {
		summary := RunSummary{
			ID:             meta.ID,
			RunLabel:       meta.RunLabel,
			Timestamp:      meta.Timestamp,
			MacroPrecision: meta.MacroPrecision,
			MacroRecall:    meta.MacroRecall,
		}
		if meta.ID == runA {
			result.RunA = summary
			foundA = true
		}
		if meta.ID == runB {
			result.RunB = summary
			foundB = true
		}
	}
	if !foundA {
		return fmt.Errorf("run %d not found (use --list to see stored runs)", runA)
	}
	if !foundB {
		return fmt.Errorf("run %d not found (use --list to see stored runs)", runB)
	}

	deltas, err := db.ComparePages(ctx, runA, runB)
	if err != nil {
		return fmt.Errorf("failed to compare runs: %w", err)
	}
	result.PagesCompared = len(deltas)

	for _, d := range deltas {
		change := PageChange{
			PageID:         d.PageID,
			PrecisionDelta: d.PrecisionDelta(),
			RecallDelta:    d.RecallDelta(),
		}
		movement := change.PrecisionDelta + change.RecallDelta
		switch {
		case math.Abs(change.PrecisionDelta) < deltaEpsilon && math.Abs(change.RecallDelta) < deltaEpsilon:
			result.Unchanged++
		case movement > 0:
			result.Improved++
			result.Changes = append(result.Changes, change)
		default:
			result.Regressed++
			result.Changes = append(result.Changes, change)
		}
	}

	// Largest movement first so regressions surface immediately.
	// Ties keep the page-ID order ComparePages returns.
	sortChanges(result.Changes)

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	return writeComparisonText(out, result)
}

// sortChanges orders changes by descending movement with a stable
// insertion sort; change lists are short.
func sortChanges(changes []PageChange) {
	for i := 1; i < len(changes); i++ {
		for j := i; j > 0 && changes[j].magnitude() > changes[j-1].magnitude(); j-- {
			changes[j], changes[j-1] = changes[j-1], changes[j]
		}
	}
}

// writeComparisonText outputs the comparison in human-readable form.
func writeComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Run Comparison: #%d -> #%d\n", result.RunA.ID, result.RunB.ID)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\n  %-12s  %-20s  %-10s  %s\n", "Run", "Date", "Precision", "Recall")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 56))
	for _, summary := range []RunSummary{result.RunA, result.RunB} {
		name := fmt.Sprintf("#%d", summary.ID)
		if summary.RunLabel != "" {
			name += " " + summary.RunLabel
		}
		fmt.Fprintf(out, "  %-12s  %-20s  %-10.4f  %.4f\n",
			name,
			summary.Timestamp.Format("2006-01-02 15:04:05"),
			summary.MacroPrecision,
			summary.MacroRecall,
		)
	}
	fmt.Fprintf(out, "  %-12s  %-20s  %-+10.4f  %+.4f\n", "delta", "",
		result.RunB.MacroPrecision-result.RunA.MacroPrecision,
		result.RunB.MacroRecall-result.RunA.MacroRecall,
	)

	fmt.Fprintf(out, "\nPages compared: %d (improved %d, regressed %d, unchanged %d)\n",
		result.PagesCompared, result.Improved, result.Regressed, result.Unchanged)

	if len(result.Changes) > 0 {
		fmt.Fprintln(out, "\nLargest changes:")
		shown := result.Changes
		if len(shown) > maxShownPages {
			shown = shown[:maxShownPages]
		}
		for _, change := range shown {
			fmt.Fprintf(out, "  %-30s  precision %+.4f  recall %+.4f\n",
				change.PageID, change.PrecisionDelta, change.RecallDelta)
		}
		if len(result.Changes) > maxShownPages {
			fmt.Fprintf(out, "  ... and %d more (use --json for the full list)\n",
				len(result.Changes)-maxShownPages)
		}
	}

	return nil
}
