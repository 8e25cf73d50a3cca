package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/poemeval/internal/model"
)

// maxPageRows caps the per-page table in markdown output. Corpora run to
// tens of thousands of pages; a table that long is useless in a rendered
// document, and CSV output exists for the full detail.
const maxPageRows = 100

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.EvalReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeScores(md, report)
	w.writeMatchBreakdown(md, report)
	w.writePages(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs the aggregate portion in Markdown format.
func (w *MarkdownWriter) WriteSummary(report *model.EvalReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeScores(md, report)
	w.writeMatchBreakdown(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with evaluation information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.EvalReport) {
	md.H1("Poem Span Evaluation Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Reference File", "`" + report.ReferenceFile + "`"},
			{"System File", "`" + report.SystemFile + "`"},
			{"Evaluation Date", report.DateEvaluated.Format("2006-01-02 15:04:05 MST")},
			{"Ignore Labels", strconv.FormatBool(report.IgnoreLabel)},
			{"Partial Match Weight", formatScore(report.PartialMatchWeight)},
			{"Pages Evaluated", strconv.Itoa(report.PagesEvaluated)},
			{"Pages Failed", strconv.Itoa(report.PagesFailed)},
		},
	})
	md.PlainText("")
}

// writeScores writes the macro-average scores with an alert reflecting
// overall quality.
func (w *MarkdownWriter) writeScores(md *markdown.Markdown, report *model.EvalReport) {
	md.H2("Scores")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Macro Precision", formatScore(report.MacroPrecision)},
			{"Macro Recall", formatScore(report.MacroRecall)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, report)
}

// writeAlert writes an alert summarizing the evaluation outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.EvalReport) {
	switch {
	case report.PagesEvaluated == 0:
		md.Caution("No pages evaluated successfully.")
	case report.PagesFailed > 0:
		md.Warningf(
			"%d page(s) failed evaluation and are excluded from the macro averages.",
			report.PagesFailed,
		)
	case report.MacroPrecision >= 0.9 && report.MacroRecall >= 0.9:
		md.Tipf(
			"Strong agreement with the reference: precision %s, recall %s.",
			formatScore(report.MacroPrecision), formatScore(report.MacroRecall),
		)
	case report.MacroRecall < 0.5:
		md.Importantf(
			"Recall is low (%s): over half the reference poetry went undetected.",
			formatScore(report.MacroRecall),
		)
	default:
		md.Notef(
			"Precision %s, recall %s over %d pages.",
			formatScore(report.MacroPrecision), formatScore(report.MacroRecall),
			report.PagesEvaluated,
		)
	}
	md.PlainText("")
}

// writeMatchBreakdown writes the match outcome totals with a pie chart.
func (w *MarkdownWriter) writeMatchBreakdown(md *markdown.Markdown, report *model.EvalReport) {
	totals := report.Totals()

	md.H2("Match Breakdown")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Spans", "Poems"},
		Rows: [][]string{
			{"Matched", strconv.Itoa(totals.SpanMatches), strconv.Itoa(totals.PoemMatches)},
			{"Missed", strconv.Itoa(totals.SpanMisses), strconv.Itoa(totals.PoemMisses)},
			{"Spurious", strconv.Itoa(totals.SpanSpurious), strconv.Itoa(totals.PoemSpurious)},
		},
	})
	md.PlainText("")

	if totals.SpanMatches+totals.SpanMisses+totals.SpanSpurious > 0 {
		w.writePieChart(md, totals)
	}
}

// writePieChart writes a mermaid pie chart of span match outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, totals model.MatchTotals) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Span Match Outcomes"),
		piechart.WithShowData(true),
	)

	if totals.SpanMatches > 0 {
		chart.LabelAndIntValue("Matched", uint64(totals.SpanMatches))
	}
	if totals.SpanMisses > 0 {
		chart.LabelAndIntValue("Missed", uint64(totals.SpanMisses))
	}
	if totals.SpanSpurious > 0 {
		chart.LabelAndIntValue("Spurious", uint64(totals.SpanSpurious))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes the per-page results table, capped at maxPageRows.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.EvalReport) {
	md.H2("Per-Page Results")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages evaluated.")
		md.PlainText("")
		return
	}

	shown := report.Pages
	if len(shown) > maxPageRows {
		shown = shown[:maxPageRows]
	}

	rows := make([][]string, len(shown))
	for i, page := range shown {
		status := "ok"
		if page.Failed() {
			status = truncateString(page.Error, 40)
		}
		rows[i] = []string{
			page.PageID,
			formatScore(page.Precision),
			formatScore(page.Recall),
			strconv.Itoa(page.NSpanMatches),
			strconv.Itoa(page.NSpanMisses),
			strconv.Itoa(page.NSpanSpurious),
			status,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Page", "Precision", "Recall", "Matched", "Missed", "Spurious", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(report.Pages) > maxPageRows {
		md.PlainText(fmt.Sprintf("*Showing first %d of %d pages. Use CSV output for the full table.*", maxPageRows, len(report.Pages)))
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [poemeval](https://github.com/nao1215/poemeval)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
