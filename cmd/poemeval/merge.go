package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/poemeval/internal/log"
	"github.com/nao1215/poemeval/internal/merge"
	"github.com/spf13/cobra"
)

// NewMergeCmd creates the merge command.
func NewMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [excerpt-file]...",
		Short: "Merge excerpt files from multiple annotation rounds",
		Long: `Merge combines poem excerpt records from several JSONL files.

Records that cover the same page stretch and the same poem are folded
into one, keeping the union of their detection methods and notes. An
unidentified record adopts a poem identification when exactly one
identified record covers the same stretch; conflicting identifications
are kept separate for manual adjudication.

Examples:
  # Merge two annotation rounds to stdout
  poemeval merge round1.jsonl round2.jsonl

  # Merge detection output into an existing reference set
  poemeval merge -o merged.jsonl reference.jsonl detected.jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMergeCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Write merged excerpts to specified file path (default: stdout)")

	return cmd
}

// runMergeCmd executes the merge command.
func runMergeCmd(cmd *cobra.Command, args []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	slog.SetDefault(logger)

	var output io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		dir := filepath.Dir(outputPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.Create(outputPath) //nolint:gosec // User-provided output path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close() //nolint:errcheck // Encoder flushes per line
		output = f
	}

	merger := merge.NewMerger(merge.WithMergerLogger(logger))
	if err := merger.MergeFiles(args, output); err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	return nil
}
