package ingest

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/poemeval/internal/model"
)

// writeFile is a test helper that writes content to a temp file.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// quietReader returns a Reader that discards diagnostics.
func quietReader() *Reader {
	return NewReader(WithReaderLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// TestReadReferenceFile tests parsing of reference annotation lines.
func TestReadReferenceFile(t *testing.T) {
	t.Parallel()

	t.Run("parses well-formed lines", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "ref.jsonl", `{"page_id": "vol1-p012", "n_excerpts": 2, "excerpts": [{"start": 0, "end": 100, "poem_id": "Z1"}, {"start": 200, "end": 350, "poem_id": "Z2"}]}
{"page_id": "vol1-p013", "n_excerpts": 0, "excerpts": []}
`)
		pages, err := quietReader().ReadReferenceFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 2 {
			t.Fatalf("expected 2 pages, got %d", len(pages))
		}
		spans := pages["vol1-p012"]
		if len(spans) != 2 {
			t.Fatalf("expected 2 spans, got %d", len(spans))
		}
		want := model.Span{Start: 0, End: 100, Label: "Z1"}
		if spans[0] != want {
			t.Errorf("spans[0] = %+v, want %+v", spans[0], want)
		}
		if len(pages["vol1-p013"]) != 0 {
			t.Error("expected empty span list for annotation-free page")
		}
	})

	t.Run("skips blank lines", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "ref.jsonl", `{"page_id": "a", "n_excerpts": 0, "excerpts": []}

{"page_id": "b", "n_excerpts": 0, "excerpts": []}
`)
		pages, err := quietReader().ReadReferenceFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 2 {
			t.Errorf("expected 2 pages, got %d", len(pages))
		}
	})

	t.Run("rejects missing page_id", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "ref.jsonl", `{"n_excerpts": 0, "excerpts": []}`)
		_, err := quietReader().ReadReferenceFile(path)
		if !errors.Is(err, ErrEmptyPageID) {
			t.Errorf("expected ErrEmptyPageID, got %v", err)
		}
	})

	t.Run("rejects duplicate page_id", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "ref.jsonl", `{"page_id": "a", "n_excerpts": 0, "excerpts": []}
{"page_id": "a", "n_excerpts": 0, "excerpts": []}
`)
		_, err := quietReader().ReadReferenceFile(path)
		if !errors.Is(err, ErrDuplicatePage) {
			t.Errorf("expected ErrDuplicatePage, got %v", err)
		}
	})

	t.Run("rejects inverted span", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "ref.jsonl", `{"page_id": "a", "n_excerpts": 1, "excerpts": [{"start": 50, "end": 10, "poem_id": "Z1"}]}`)
		_, err := quietReader().ReadReferenceFile(path)
		if !errors.Is(err, model.ErrSpanOrder) {
			t.Errorf("expected ErrSpanOrder, got %v", err)
		}
	})

	t.Run("rejects malformed json with line number", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "ref.jsonl", `{"page_id": "a", "n_excerpts": 0, "excerpts": []}
{not json}
`)
		_, err := quietReader().ReadReferenceFile(path)
		if err == nil {
			t.Fatal("expected an error for malformed json")
		}
	})

	t.Run("missing file returns an error", func(t *testing.T) {
		t.Parallel()

		_, err := quietReader().ReadReferenceFile(filepath.Join(t.TempDir(), "nope.jsonl"))
		if err == nil {
			t.Error("expected an error for missing file")
		}
	})
}

// TestReadSystemFile tests parsing of system annotation lines.
func TestReadSystemFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "sys.jsonl", `{"page_id": "vol1-p012", "n_spans": 1, "poem_spans": [{"page_start": 10, "page_end": 90, "ref_id": "Z1"}]}`)
	pages, err := quietReader().ReadSystemFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	spans := pages["vol1-p012"]
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	want := model.Span{Start: 10, End: 90, Label: "Z1"}
	if spans[0] != want {
		t.Errorf("spans[0] = %+v, want %+v", spans[0], want)
	}
}

// TestBuildPages tests pairing reference and system pages by ID.
func TestBuildPages(t *testing.T) {
	t.Parallel()

	refs := map[string][]model.Span{
		"p-b": {{Start: 0, End: 10, Label: "Z1"}},
		"p-a": {{Start: 5, End: 15, Label: "Z2"}},
	}
	sys := map[string][]model.Span{
		"p-b": {{Start: 0, End: 10, Label: "Z1"}},
		"p-c": {{Start: 20, End: 30, Label: "Z9"}},
	}

	pages := BuildPages(refs, sys)
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}

	// Sorted by page ID, union of both sides.
	wantIDs := []string{"p-a", "p-b", "p-c"}
	for i, want := range wantIDs {
		if pages[i].PageID != want {
			t.Errorf("pages[%d] = %s, want %s", i, pages[i].PageID, want)
		}
	}

	// Reference-only page keeps an empty system side and vice versa.
	if len(pages[0].SystemSpans) != 0 {
		t.Error("expected no system spans for reference-only page")
	}
	if len(pages[2].ReferenceSpans) != 0 {
		t.Error("expected no reference spans for system-only page")
	}
}

// TestReadPages tests the combined read-and-pair path.
func TestReadPages(t *testing.T) {
	t.Parallel()

	refPath := writeFile(t, "ref.jsonl", `{"page_id": "p1", "n_excerpts": 1, "excerpts": [{"start": 0, "end": 100, "poem_id": "Z1"}]}`)
	sysPath := writeFile(t, "sys.jsonl", `{"page_id": "p1", "n_spans": 1, "poem_spans": [{"page_start": 0, "page_end": 100, "ref_id": "Z1"}]}
{"page_id": "p2", "n_spans": 1, "poem_spans": [{"page_start": 5, "page_end": 25, "ref_id": "Z3"}]}
`)

	pages, err := quietReader().ReadPages(refPath, sysPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].PageID != "p1" || pages[1].PageID != "p2" {
		t.Errorf("unexpected page order: %s, %s", pages[0].PageID, pages[1].PageID)
	}
}
