package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/nao1215/poemeval/internal/model"
)

// CSVWriter outputs reports in CSV format, one row per page.
// This format is designed for spreadsheets and plotting scripts, which is
// how evaluation results usually get consumed during model development.
//
// Design decision: We use standard encoding/csv because the output is a
// plain rectangular table; it handles quoting of page IDs and error
// messages correctly and needs no extra dependencies.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{
		baseWriter: newBaseWriter(output),
	}
}

// pageHeader is the column layout of the per-page CSV.
var pageHeader = []string{
	"page_id",
	"precision",
	"recall",
	"n_span_matches",
	"n_span_misses",
	"n_span_spurious",
	"n_poem_matches",
	"n_poem_misses",
	"n_poem_spurious",
	"error",
}

// Write outputs one row per page plus a header row.
func (w *CSVWriter) Write(report *model.EvalReport) (int, error) {
	counter := &countingWriter{inner: w.output}
	cw := csv.NewWriter(counter)

	if err := cw.Write(pageHeader); err != nil {
		return counter.n, err
	}
	for _, page := range report.Pages {
		row := []string{
			page.PageID,
			formatScore(page.Precision),
			formatScore(page.Recall),
			strconv.Itoa(page.NSpanMatches),
			strconv.Itoa(page.NSpanMisses),
			strconv.Itoa(page.NSpanSpurious),
			strconv.Itoa(page.NPoemMatches),
			strconv.Itoa(page.NPoemMisses),
			strconv.Itoa(page.NPoemSpurious),
			page.Error,
		}
		if err := cw.Write(row); err != nil {
			return counter.n, err
		}
	}

	cw.Flush()
	return counter.n, cw.Error()
}

// WriteSummary outputs a single aggregate row plus a header row.
func (w *CSVWriter) WriteSummary(report *model.EvalReport) (int, error) {
	counter := &countingWriter{inner: w.output}
	cw := csv.NewWriter(counter)

	header := []string{
		"reference_file",
		"system_file",
		"macro_precision",
		"macro_recall",
		"pages_evaluated",
		"pages_failed",
	}
	if err := cw.Write(header); err != nil {
		return counter.n, err
	}

	row := []string{
		report.ReferenceFile,
		report.SystemFile,
		formatScore(report.MacroPrecision),
		formatScore(report.MacroRecall),
		strconv.Itoa(report.PagesEvaluated),
		strconv.Itoa(report.PagesFailed),
	}
	if err := cw.Write(row); err != nil {
		return counter.n, err
	}

	cw.Flush()
	return counter.n, cw.Error()
}

// formatScore renders a score with enough precision to tell evaluation
// runs apart without trailing float noise.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// countingWriter tracks bytes written so CSVWriter can satisfy the Writer
// interface's byte count, which csv.Writer does not expose.
type countingWriter struct {
	inner io.Writer
	n     int
}

// Write implements io.Writer.
func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.inner.Write(p)
	c.n += n
	return n, err
}
