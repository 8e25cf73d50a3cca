package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/poemeval/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter:   newBaseWriter(output),
		indent:       false,
		indentPrefix: "",
		indentString: "",
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in JSON format.
func (w *JSONWriter) Write(report *model.EvalReport) (int, error) {
	return w.writeJSON(report)
}

// jsonSummary is the aggregate-only projection of a report.
// It mirrors the EvalReport field names so downstream tooling can parse
// either shape with the same keys.
type jsonSummary struct {
	ReferenceFile      string            `json:"reference_file"`
	SystemFile         string            `json:"system_file"`
	IgnoreLabel        bool              `json:"ignore_label"`
	PartialMatchWeight float64           `json:"partial_match_weight"`
	DateEvaluated      string            `json:"date_evaluated"`
	MacroPrecision     float64           `json:"macro_precision"`
	MacroRecall        float64           `json:"macro_recall"`
	PagesEvaluated     int               `json:"pages_evaluated"`
	PagesFailed        int               `json:"pages_failed"`
	Totals             model.MatchTotals `json:"totals"`
}

// WriteSummary outputs only the aggregate portion in JSON format.
func (w *JSONWriter) WriteSummary(report *model.EvalReport) (int, error) {
	return w.writeJSON(jsonSummary{
		ReferenceFile:      report.ReferenceFile,
		SystemFile:         report.SystemFile,
		IgnoreLabel:        report.IgnoreLabel,
		PartialMatchWeight: report.PartialMatchWeight,
		DateEvaluated:      report.DateEvaluated.Format("2006-01-02T15:04:05Z07:00"),
		MacroPrecision:     report.MacroPrecision,
		MacroRecall:        report.MacroRecall,
		PagesEvaluated:     report.PagesEvaluated,
		PagesFailed:        report.PagesFailed,
		Totals:             report.Totals(),
	})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v interface{}) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
