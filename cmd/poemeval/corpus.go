package main

import (
	"fmt"
	"log/slog"

	"github.com/nao1215/poemeval/internal/chadwyck"
	"github.com/nao1215/poemeval/internal/log"
	"github.com/spf13/cobra"
)

// NewCorpusCmd creates the corpus command.
func NewCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus [input-dir]",
		Short: "Convert Chadwyck-Healey TML poems to plain text with metadata",
		Long: `Corpus parses every .tml file under the input directory.

For each poem it writes the extracted plain text to a .txt file in the
output directory and records the poem's metadata (author, title,
edition, period, genre, rhyme scheme) in a single CSV for the whole
corpus. Files that fail to parse are logged and skipped.

Examples:
  # Convert a corpus directory
  poemeval corpus chadwyck-healey/

  # Choose where the text and metadata land
  poemeval corpus --output-dir plaintext --metadata meta.csv chadwyck-healey/`,
		Args: cobra.ExactArgs(1),
		RunE: runCorpusCmd,
	}

	cmd.Flags().StringP("output-dir", "d", "plaintext",
		"Directory for extracted plain-text poems")
	cmd.Flags().String("metadata", "metadata.csv",
		"Output path for the corpus metadata CSV")

	return cmd
}

// runCorpusCmd executes the corpus command.
func runCorpusCmd(cmd *cobra.Command, args []string) error {
	outputDir, err := cmd.Flags().GetString("output-dir")
	if err != nil {
		return err
	}
	csvPath, err := cmd.Flags().GetString("metadata")
	if err != nil {
		return err
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	slog.SetDefault(logger)

	parser := chadwyck.NewParser(chadwyck.WithParserLogger(logger))
	result, err := parser.ProcessDirectory(cmd.Context(), args[0], outputDir, csvPath)
	if err != nil {
		return fmt.Errorf("corpus conversion failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Parsed %d poems (%d failed)\n",
		result.FilesParsed, result.FilesFailed)
	if len(result.FigureOnly) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Figure-only poems with no text (%d):\n", len(result.FigureOnly))
		for _, name := range result.FigureOnly {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Plain text written to %s, metadata to %s\n", outputDir, csvPath)

	return nil
}
