package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNewMergeCmd tests the merge command creation.
func TestNewMergeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewMergeCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "merge [excerpt-file]..." {
			t.Errorf("unexpected use: %q", cmd.Use)
		}
	})

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
	})
}

// TestRunMergeCmd tests the merge command end to end.
func TestRunMergeCmd(t *testing.T) {
	t.Parallel()

	t.Run("merges duplicate records across files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		first := writeTestFile(t, dir, "round1.jsonl",
			`{"page_id":"p1","start":10,"end":50,"text":"The curfew tolls","detection_methods":["manual"],"poem_id":"elegy","excerpt_id":"m@10:50"}`+"\n")
		second := writeTestFile(t, dir, "round2.jsonl",
			`{"page_id":"p1","start":10,"end":50,"text":"The curfew tolls","detection_methods":["passim"],"poem_id":"elegy","excerpt_id":"p@10:50"}`+"\n")
		outPath := filepath.Join(dir, "merged.jsonl")

		_, err := runCommand(t, "merge", "-o", outPath, first, second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(outPath) //nolint:gosec // Test-controlled path
		if err != nil {
			t.Fatalf("expected merged output: %v", err)
		}
		output := strings.TrimSpace(string(data))
		if strings.Count(output, "\n") != 0 {
			t.Errorf("expected a single merged record, got %q", output)
		}
		if !strings.Contains(output, `"excerpt_id":"c@10:50"`) {
			t.Errorf("expected combined excerpt ID, got %q", output)
		}
	})

	t.Run("errors on missing input file", func(t *testing.T) {
		t.Parallel()

		_, err := runCommand(t, "merge", filepath.Join(t.TempDir(), "missing.jsonl"))
		if err == nil {
			t.Error("expected error for missing input file")
		}
	})
}
