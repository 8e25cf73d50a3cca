// Package main provides the entry point for the poemeval CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for poemeval.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poemeval",
		Short: "Evaluation tool for poetry span detection",
		Long: `poemeval scores automatic poetry detection against reference annotations.

Given a reference file of hand-annotated poem excerpts and a system file of
detected spans, it computes page-level precision and recall using overlap
scoring, then aggregates the scores across the corpus.

Evaluation runs are saved to a local database so that model versions can be
compared page by page with 'poemeval compare'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewEvaluateCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewMergeCmd())
	cmd.AddCommand(NewCorpusCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
