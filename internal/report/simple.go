package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/poemeval/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables the per-page listing in full output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with per-page details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.EvalReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeScores(&sb, report)
	w.writeBreakdown(&sb, report)
	if w.verbose {
		w.writePages(&sb, report)
	} else {
		w.writeFailures(&sb, report)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs only the aggregate portion in human-readable format.
func (w *SimpleWriter) WriteSummary(report *model.EvalReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeScores(&sb, report)
	w.writeBreakdown(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with evaluation information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.EvalReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    POEM SPAN EVALUATION REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Reference File:  %s\n", report.ReferenceFile))
	sb.WriteString(fmt.Sprintf("System File:     %s\n", report.SystemFile))
	sb.WriteString(fmt.Sprintf("Evaluation Date: %s\n", report.DateEvaluated.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Ignore Labels:   %t\n", report.IgnoreLabel))
	sb.WriteString(fmt.Sprintf("Partial Weight:  %s\n", formatScore(report.PartialMatchWeight)))
	sb.WriteString("\n")
}

// writeScores writes the macro-average scores.
func (w *SimpleWriter) writeScores(sb *strings.Builder, report *model.EvalReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SCORES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Macro Precision: %s\n", formatScore(report.MacroPrecision)))
	sb.WriteString(fmt.Sprintf("  Macro Recall:    %s\n", formatScore(report.MacroRecall)))
	sb.WriteString(fmt.Sprintf("  Pages Evaluated: %d\n", report.PagesEvaluated))
	if report.PagesFailed > 0 {
		sb.WriteString(fmt.Sprintf("  Pages Failed:    %d\n", report.PagesFailed))
	}
	sb.WriteString("\n")
}

// writeBreakdown writes the match outcome totals.
func (w *SimpleWriter) writeBreakdown(sb *strings.Builder, report *model.EvalReport) {
	totals := report.Totals()

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("MATCH BREAKDOWN\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString("              Spans   Poems\n")
	sb.WriteString(fmt.Sprintf("  Matched:  %6d  %6d\n", totals.SpanMatches, totals.PoemMatches))
	sb.WriteString(fmt.Sprintf("  Missed:   %6d  %6d\n", totals.SpanMisses, totals.PoemMisses))
	sb.WriteString(fmt.Sprintf("  Spurious: %6d  %6d\n", totals.SpanSpurious, totals.PoemSpurious))
	sb.WriteString("\n")
}

// writePages writes one line per page.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.EvalReport) {
	if len(report.Pages) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, page := range report.Pages {
		if page.Failed() {
			sb.WriteString(fmt.Sprintf("  [x] %s: %s\n", page.PageID, page.Error))
			continue
		}
		sb.WriteString(fmt.Sprintf("  [+] %s: precision=%s recall=%s\n",
			page.PageID, formatScore(page.Precision), formatScore(page.Recall)))
	}
	sb.WriteString("\n")
}

// writeFailures lists failed pages even in non-verbose mode, since a
// silent failure would skew the macro averages without explanation.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.EvalReport) {
	if report.PagesFailed == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILED PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, page := range report.Pages {
		if page.Failed() {
			sb.WriteString(fmt.Sprintf("  [x] %s: %s\n", page.PageID, page.Error))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by poemeval\n")
	sb.WriteString("https://github.com/nao1215/poemeval\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
