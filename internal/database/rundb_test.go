package database

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/poemeval/internal/model"
)

// openTestDB creates a RunDB in a temp directory and registers cleanup.
func openTestDB(t *testing.T) *RunDB {
	t.Helper()

	rdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})
	return rdb
}

// testReport builds a small report for storage tests.
func testReport(refFile string) *model.EvalReport {
	pages := []*model.PageResult{
		{PageID: "p1", Precision: 1.0, Recall: 0.8, NSpanMatches: 2},
		{PageID: "p2", Precision: 0.5, Recall: 0.5, NSpanMatches: 1, NSpanMisses: 1},
		{PageID: "p3", Error: "invalid span"},
	}
	return model.NewEvalReport(refFile, "sys.jsonl", false, 1.0, pages)
}

// TestOpen tests database creation behavior.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		rdb, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer rdb.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(filepath.Join(dir, "poemeval.db")); err != nil {
			t.Errorf("expected database file to exist: %v", err)
		}
	})

	t.Run("refuses missing database without create", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false}
		if _, err := Open(filepath.Join(t.TempDir(), "absent"), opts); err == nil {
			t.Error("expected error for missing database")
		}
	})
}

// TestSaveAndGetRun tests the round trip through the runs table.
func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	rdb := openTestDB(t)
	ctx := context.Background()

	id, err := rdb.SaveRun(ctx, testReport("ref.jsonl"), "baseline")
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero run id")
	}

	got, err := rdb.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got == nil {
		t.Fatal("expected a stored run")
	}
	if got.ReferenceFile != "ref.jsonl" {
		t.Errorf("ReferenceFile = %s, want ref.jsonl", got.ReferenceFile)
	}
	if len(got.Pages) != 3 {
		t.Errorf("expected 3 pages, got %d", len(got.Pages))
	}
	if got.PagesFailed != 1 {
		t.Errorf("PagesFailed = %d, want 1", got.PagesFailed)
	}
}

// TestGetRunMissing tests that a missing run returns nil without error.
func TestGetRunMissing(t *testing.T) {
	t.Parallel()

	rdb := openTestDB(t)
	got, err := rdb.GetRun(context.Background(), 12345)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing run")
	}
}

// TestListRuns tests run history listing.
func TestListRuns(t *testing.T) {
	t.Parallel()

	rdb := openTestDB(t)
	ctx := context.Background()

	if _, err := rdb.SaveRun(ctx, testReport("ref-v1.jsonl"), "v1"); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	if _, err := rdb.SaveRun(ctx, testReport("ref-v2.jsonl"), "v2"); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	runs, err := rdb.ListRuns(ctx)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	// Newest first.
	if runs[0].RunLabel != "v2" {
		t.Errorf("runs[0].RunLabel = %s, want v2", runs[0].RunLabel)
	}
	if runs[0].PagesEvaluated != 2 || runs[0].PagesFailed != 1 {
		t.Errorf("unexpected page counts: %d evaluated, %d failed",
			runs[0].PagesEvaluated, runs[0].PagesFailed)
	}
}

// TestComparePages tests the per-page join between two runs.
func TestComparePages(t *testing.T) {
	t.Parallel()

	rdb := openTestDB(t)
	ctx := context.Background()

	runA := model.NewEvalReport("ref.jsonl", "sys-v1.jsonl", false, 1.0, []*model.PageResult{
		{PageID: "p1", Precision: 0.5, Recall: 0.5, NSpanMatches: 1},
		{PageID: "p2", Precision: 1.0, Recall: 1.0, NSpanMatches: 2},
		{PageID: "p3", Error: "invalid span"},
	})
	runB := model.NewEvalReport("ref.jsonl", "sys-v2.jsonl", false, 1.0, []*model.PageResult{
		{PageID: "p1", Precision: 0.75, Recall: 0.9, NSpanMatches: 2},
		{PageID: "p2", Precision: 0.9, Recall: 1.0, NSpanMatches: 2},
		{PageID: "p4", Precision: 1.0, Recall: 1.0, NSpanMatches: 1},
	})

	idA, err := rdb.SaveRun(ctx, runA, "v1")
	if err != nil {
		t.Fatalf("failed to save run A: %v", err)
	}
	idB, err := rdb.SaveRun(ctx, runB, "v2")
	if err != nil {
		t.Fatalf("failed to save run B: %v", err)
	}

	deltas, err := rdb.ComparePages(ctx, idA, idB)
	if err != nil {
		t.Fatalf("failed to compare runs: %v", err)
	}

	// p3 failed in A, p4 is absent from A: only p1 and p2 are comparable.
	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(deltas))
	}
	if deltas[0].PageID != "p1" || deltas[1].PageID != "p2" {
		t.Errorf("unexpected page order: %s, %s", deltas[0].PageID, deltas[1].PageID)
	}
	if got := deltas[0].PrecisionDelta(); got != 0.25 {
		t.Errorf("p1 precision delta = %v, want 0.25", got)
	}
	if got := deltas[1].PrecisionDelta(); math.Abs(got+0.1) > 1e-9 {
		t.Errorf("p2 precision delta = %v, want -0.1", got)
	}
}
