package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/poemeval/internal/model"
)

// writeTestFile writes content to a file under dir and returns its path.
func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// runCommand executes the root command with the given args and returns
// the combined output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// TestNewEvaluateCmd tests the evaluate command creation.
func TestNewEvaluateCmd(t *testing.T) {
	t.Parallel()

	cmd := NewEvaluateCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "evaluate [reference-file] [system-file]" {
			t.Errorf("unexpected use: %q", cmd.Use)
		}
	})

	t.Run("has eval alias", func(t *testing.T) {
		t.Parallel()
		if len(cmd.Aliases) != 1 || cmd.Aliases[0] != "eval" {
			t.Errorf("expected alias 'eval', got %v", cmd.Aliases)
		}
	})

	t.Run("has matching flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{
			"ignore-label", "weight", "concurrency",
			"config", "profile",
			"csv", "json", "markdown", "output",
			"no-save", "run-label", "db-dir",
		} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})
}

// TestRunEvaluateCmd tests the evaluate command end to end.
func TestRunEvaluateCmd(t *testing.T) {
	t.Parallel()

	reference := `{"page_id":"p1","n_excerpts":1,"excerpts":[{"start":0,"end":10,"poem_id":"elegy"}]}` + "\n"
	system := `{"page_id":"p1","n_spans":1,"poem_spans":[{"page_start":0,"page_end":10,"ref_id":"elegy"}]}` + "\n"
	configFile := "defaults:\n  concurrency: 2\n"

	t.Run("exact match scores 1.0", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		refPath := writeTestFile(t, dir, "reference.jsonl", reference)
		sysPath := writeTestFile(t, dir, "system.jsonl", system)
		cfgPath := writeTestFile(t, dir, ".poemeval", configFile)
		outPath := filepath.Join(dir, "report.json")

		_, err := runCommand(t,
			"evaluate", "--no-save", "--json",
			"-c", cfgPath, "-o", outPath,
			refPath, sysPath,
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(outPath) //nolint:gosec // Test-controlled path
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}
		var evalReport model.EvalReport
		if err := json.Unmarshal(data, &evalReport); err != nil {
			t.Fatalf("report is not valid JSON: %v", err)
		}
		if evalReport.MacroPrecision != 1.0 || evalReport.MacroRecall != 1.0 {
			t.Errorf("precision/recall = %f/%f, want 1/1",
				evalReport.MacroPrecision, evalReport.MacroRecall)
		}
		if evalReport.PagesEvaluated != 1 {
			t.Errorf("PagesEvaluated = %d, want 1", evalReport.PagesEvaluated)
		}
	})

	t.Run("profile disables partial credit", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		refPath := writeTestFile(t, dir, "reference.jsonl", reference)
		partial := `{"page_id":"p1","n_spans":1,"poem_spans":[{"page_start":0,"page_end":5,"ref_id":"elegy"}]}` + "\n"
		sysPath := writeTestFile(t, dir, "system.jsonl", partial)
		cfgPath := writeTestFile(t, dir, ".poemeval",
			"profiles:\n  strict:\n    partialMatchWeight: 0.0\n")
		outPath := filepath.Join(dir, "report.json")

		_, err := runCommand(t,
			"evaluate", "--no-save", "--json",
			"-c", cfgPath, "-p", "strict", "-o", outPath,
			refPath, sysPath,
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(outPath) //nolint:gosec // Test-controlled path
		if err != nil {
			t.Fatal(err)
		}
		var evalReport model.EvalReport
		if err := json.Unmarshal(data, &evalReport); err != nil {
			t.Fatal(err)
		}
		if evalReport.PartialMatchWeight != 0 {
			t.Errorf("PartialMatchWeight = %f, want 0", evalReport.PartialMatchWeight)
		}
		if evalReport.MacroPrecision != 0 {
			t.Errorf("MacroPrecision = %f, want 0 with partial credit disabled", evalReport.MacroPrecision)
		}
	})

	t.Run("rejects weight above 1", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		refPath := writeTestFile(t, dir, "reference.jsonl", reference)
		sysPath := writeTestFile(t, dir, "system.jsonl", system)
		cfgPath := writeTestFile(t, dir, ".poemeval", configFile)

		_, err := runCommand(t,
			"evaluate", "--no-save", "-c", cfgPath, "-w", "1.5",
			refPath, sysPath,
		)
		if err == nil {
			t.Error("expected configuration error for weight above 1")
		}
	})

	t.Run("rejects unknown profile", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		refPath := writeTestFile(t, dir, "reference.jsonl", reference)
		sysPath := writeTestFile(t, dir, "system.jsonl", system)
		cfgPath := writeTestFile(t, dir, ".poemeval", configFile)

		_, err := runCommand(t,
			"evaluate", "--no-save", "-c", cfgPath, "-p", "nonexistent",
			refPath, sysPath,
		)
		if err == nil {
			t.Error("expected error for unknown profile")
		}
	})

	t.Run("errors on missing config file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		refPath := writeTestFile(t, dir, "reference.jsonl", reference)
		sysPath := writeTestFile(t, dir, "system.jsonl", system)

		_, err := runCommand(t,
			"evaluate", "--no-save", "-c", filepath.Join(dir, "missing.yaml"),
			refPath, sysPath,
		)
		if err == nil {
			t.Error("expected error for explicit missing config file")
		}
	})
}
