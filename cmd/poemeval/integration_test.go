package main

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestEvaluateCompareWorkflow runs the full workflow: two evaluations
// saved to a shared database, then a page-level comparison of the runs.
func TestEvaluateCompareWorkflow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbDir := t.TempDir()

	refPath := writeTestFile(t, dir, "reference.jsonl",
		`{"page_id":"p1","n_excerpts":1,"excerpts":[{"start":0,"end":10,"poem_id":"elegy"}]}`+"\n")
	cfgPath := writeTestFile(t, dir, ".poemeval", "defaults:\n  concurrency: 2\n")

	// Baseline run: exact detection.
	exactPath := writeTestFile(t, dir, "exact.jsonl",
		`{"page_id":"p1","n_spans":1,"poem_spans":[{"page_start":0,"page_end":10,"ref_id":"elegy"}]}`+"\n")
	if _, err := runCommand(t,
		"evaluate", "-c", cfgPath, "--db-dir", dbDir, "--run-label", "baseline",
		refPath, exactPath,
	); err != nil {
		t.Fatalf("baseline evaluation failed: %v", err)
	}

	// Candidate run: detection covers only half the reference span.
	partialPath := writeTestFile(t, dir, "partial.jsonl",
		`{"page_id":"p1","n_spans":1,"poem_spans":[{"page_start":0,"page_end":5,"ref_id":"elegy"}]}`+"\n")
	if _, err := runCommand(t,
		"evaluate", "-c", cfgPath, "--db-dir", dbDir, "--run-label", "candidate",
		refPath, partialPath,
	); err != nil {
		t.Fatalf("candidate evaluation failed: %v", err)
	}

	t.Run("list shows both runs", func(t *testing.T) {
		output, err := runCommand(t, "compare", "--list", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "Stored runs (2)") {
			t.Errorf("expected two stored runs, got %q", output)
		}
		if !strings.Contains(output, "baseline") || !strings.Contains(output, "candidate") {
			t.Errorf("expected run labels in listing, got %q", output)
		}
	})

	t.Run("comparison reports the regression", func(t *testing.T) {
		output, err := runCommand(t, "compare", "--json", "--db-dir", dbDir, "1", "2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result ComparisonResult
		if err := json.Unmarshal([]byte(output), &result); err != nil {
			t.Fatalf("comparison output is not valid JSON: %v", err)
		}
		if result.PagesCompared != 1 {
			t.Errorf("PagesCompared = %d, want 1", result.PagesCompared)
		}
		if result.Regressed != 1 || result.Improved != 0 {
			t.Errorf("regressed/improved = %d/%d, want 1/0", result.Regressed, result.Improved)
		}
		if result.RunA.MacroPrecision != 1.0 {
			t.Errorf("RunA.MacroPrecision = %f, want 1", result.RunA.MacroPrecision)
		}
		if result.RunB.MacroPrecision != 0.5 {
			t.Errorf("RunB.MacroPrecision = %f, want 0.5", result.RunB.MacroPrecision)
		}
	})

	t.Run("defaults to the latest two runs", func(t *testing.T) {
		output, err := runCommand(t, "compare", "--json", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result ComparisonResult
		if err := json.Unmarshal([]byte(output), &result); err != nil {
			t.Fatalf("comparison output is not valid JSON: %v", err)
		}
		if result.RunA.RunLabel != "baseline" || result.RunB.RunLabel != "candidate" {
			t.Errorf("run labels = %q/%q, want baseline/candidate",
				result.RunA.RunLabel, result.RunB.RunLabel)
		}
	})

	t.Run("unknown run ID is rejected", func(t *testing.T) {
		if _, err := runCommand(t, "compare", "--db-dir", dbDir, "1", "99"); err == nil {
			t.Error("expected error for unknown run ID")
		}
	})
}
