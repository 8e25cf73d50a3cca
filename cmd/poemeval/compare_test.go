package main

import (
	"strings"
	"testing"
)

// TestNewCompareCmd tests the compare command creation.
func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "compare [run-id] [run-id]" {
			t.Errorf("unexpected use: %q", cmd.Use)
		}
	})

	t.Run("has list flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("list")
		if flag == nil {
			t.Fatal("expected list flag")
		}
		if flag.Shorthand != "l" {
			t.Errorf("expected shorthand 'l', got %q", flag.Shorthand)
		}
	})

	t.Run("has json flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("json") == nil {
			t.Error("expected json flag")
		}
	})
}

// TestRunCompareCmdErrors tests compare command error paths.
func TestRunCompareCmdErrors(t *testing.T) {
	t.Parallel()

	t.Run("errors with a single run ID", func(t *testing.T) {
		t.Parallel()

		_, err := runCommand(t, "compare", "--db-dir", t.TempDir(), "3")
		if err == nil {
			t.Error("expected error for a single run ID")
		}
	})

	t.Run("errors on non-numeric run ID", func(t *testing.T) {
		t.Parallel()

		_, err := runCommand(t, "compare", "--db-dir", t.TempDir(), "one", "two")
		if err == nil {
			t.Error("expected error for non-numeric run IDs")
		}
	})

	t.Run("errors when database is missing", func(t *testing.T) {
		t.Parallel()

		_, err := runCommand(t, "compare", "--list", "--db-dir", t.TempDir())
		if err == nil || !strings.Contains(err.Error(), "poemeval evaluate") {
			t.Errorf("expected missing-database hint, got %v", err)
		}
	})
}

// TestSortChanges tests the change ordering used in comparison output.
func TestSortChanges(t *testing.T) {
	t.Parallel()

	changes := []PageChange{
		{PageID: "small", PrecisionDelta: 0.01},
		{PageID: "big", PrecisionDelta: -0.5, RecallDelta: -0.25},
		{PageID: "medium", RecallDelta: 0.3},
	}
	sortChanges(changes)

	want := []string{"big", "medium", "small"}
	for i, id := range want {
		if changes[i].PageID != id {
			t.Errorf("changes[%d].PageID = %s, want %s", i, changes[i].PageID, id)
		}
	}
}
