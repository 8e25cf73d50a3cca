package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/poemeval/internal/model"
)

// sampleReport builds a small report with a mix of outcomes.
func sampleReport() *model.EvalReport {
	pages := []*model.PageResult{
		{
			PageID:       "vol1-p012",
			Precision:    1.0,
			Recall:       1.0,
			NSpanMatches: 2,
			NPoemMatches: 2,
		},
		{
			PageID:        "vol1-p013",
			Precision:     0.5,
			Recall:        0.25,
			NSpanMatches:  1,
			NSpanMisses:   3,
			NSpanSpurious: 1,
			NPoemMatches:  1,
			NPoemMisses:   2,
			NPoemSpurious: 1,
		},
		{
			PageID: "vol1-p014",
			Error:  "invalid span: end before start",
		},
	}
	return model.NewEvalReport("ref.jsonl", "sys.jsonl", false, 1.0, pages)
}

// TestEvalReportTotals tests the match count aggregation.
func TestEvalReportTotals(t *testing.T) {
	t.Parallel()

	totals := sampleReport().Totals()
	if totals.SpanMatches != 3 {
		t.Errorf("SpanMatches = %d, want 3", totals.SpanMatches)
	}
	if totals.SpanMisses != 3 {
		t.Errorf("SpanMisses = %d, want 3", totals.SpanMisses)
	}
	if totals.SpanSpurious != 1 {
		t.Errorf("SpanSpurious = %d, want 1", totals.SpanSpurious)
	}
	if totals.PoemMatches != 3 || totals.PoemMisses != 2 || totals.PoemSpurious != 1 {
		t.Errorf("poem totals = %d/%d/%d, want 3/2/1",
			totals.PoemMatches, totals.PoemMisses, totals.PoemSpurious)
	}
}

// TestJSONWriter tests JSON output of full and summary reports.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("full report round-trips", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		n, err := w.Write(sampleReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		var decoded model.EvalReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(decoded.Pages) != 3 {
			t.Errorf("expected 3 pages, got %d", len(decoded.Pages))
		}
		if decoded.MacroRecall != 0.625 {
			t.Errorf("MacroRecall = %v, want 0.625", decoded.MacroRecall)
		}
	})

	t.Run("summary omits pages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		if _, err := w.WriteSummary(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "vol1-p012") {
			t.Error("summary output should not include per-page results")
		}
		if !strings.Contains(buf.String(), `"macro_precision"`) {
			t.Error("summary output should include macro scores")
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())
		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})
}

// TestCSVWriter tests CSV output shape and content.
func TestCSVWriter(t *testing.T) {
	t.Parallel()

	t.Run("one row per page", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewCSVWriter(&buf)
		n, err := w.Write(sampleReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("expected header + 3 rows, got %d records", len(records))
		}
		if records[0][0] != "page_id" {
			t.Errorf("header[0] = %s, want page_id", records[0][0])
		}
		if records[1][0] != "vol1-p012" || records[1][1] != "1.000000" {
			t.Errorf("unexpected first row: %v", records[1])
		}
		if records[3][9] == "" {
			t.Error("expected error column populated for failed page")
		}
	})

	t.Run("summary is a single row", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewCSVWriter(&buf)
		if _, err := w.WriteSummary(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected header + 1 row, got %d records", len(records))
		}
		if records[1][0] != "ref.jsonl" {
			t.Errorf("unexpected summary row: %v", records[1])
		}
	})
}

// TestMarkdownWriter tests Markdown output structure.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("full report has all sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Poem Span Evaluation Report",
			"## Scores",
			"## Match Breakdown",
			"## Per-Page Results",
			"vol1-p012",
			"mermaid",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("summary skips page table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		if _, err := w.WriteSummary(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "## Per-Page Results") {
			t.Error("summary should not include per-page table")
		}
	})

	t.Run("failed pages trigger warning", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "failed evaluation") {
			t.Error("expected warning about failed pages")
		}
	})
}

// TestSimpleWriter tests human-readable output.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("includes scores and breakdown", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"POEM SPAN EVALUATION REPORT",
			"SCORES",
			"MATCH BREAKDOWN",
			"Macro Precision: 0.750000",
			"Macro Recall:    0.625000",
			"FAILED PAGES",
			"vol1-p014",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("verbose lists every page", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))
		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "vol1-p013") {
			t.Error("expected per-page listing in verbose mode")
		}
	})

	t.Run("summary omits pages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		if _, err := w.WriteSummary(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "vol1-p014") {
			t.Error("summary should not list pages")
		}
	})
}

// TestMultiWriter tests fan-out to multiple writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewJSONWriter(&a), NewSimpleWriter(&b))
		if _, err := mw.Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("expected output in both writers")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var b bytes.Buffer
		mw := NewMultiWriter(NewJSONWriter(failWriter{}), NewSimpleWriter(&b))
		if _, err := mw.Write(sampleReport()); err == nil {
			t.Fatal("expected error from failing writer")
		}
		if b.Len() != 0 {
			t.Error("expected no output after a failed writer")
		}
	})
}

// failWriter always fails.
type failWriter struct{}

// Write implements io.Writer.
func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}
