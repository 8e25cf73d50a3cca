package ingest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/nao1215/poemeval/internal/model"
)

// maxLineBytes is the scanner buffer limit for a single JSONL line.
// Densely annotated pages stay well under this, but a whole-book record
// accidentally written as one line should fail loudly rather than be
// silently split.
const maxLineBytes = 10 * 1024 * 1024

// Input file errors.
var (
	// ErrEmptyPageID is returned when a line has no page_id field.
	ErrEmptyPageID = errors.New("missing page_id")

	// ErrDuplicatePage is returned when the same page_id appears on more
	// than one line of a file. Annotations for a page must be complete on
	// a single line or pairing becomes ambiguous.
	ErrDuplicatePage = errors.New("duplicate page_id")
)

// referenceLine is the JSONL shape of one reference (ground truth) page.
type referenceLine struct {
	PageID    string             `json:"page_id"`
	NExcerpts int                `json:"n_excerpts"`
	Excerpts  []referenceExcerpt `json:"excerpts"`
}

// referenceExcerpt is one adjudicated excerpt on a reference page.
type referenceExcerpt struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	PoemID string `json:"poem_id"`
}

// systemLine is the JSONL shape of one system (detected) page.
type systemLine struct {
	PageID    string       `json:"page_id"`
	NSpans    int          `json:"n_spans"`
	PoemSpans []systemSpan `json:"poem_spans"`
}

// systemSpan is one detected poem span on a system page.
type systemSpan struct {
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	RefID     string `json:"ref_id"`
}

// Reader loads page annotation files.
type Reader struct {
	logger *slog.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithReaderLogger sets the logger used for ingest diagnostics.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader creates a Reader with the given options.
func NewReader(opts ...ReaderOption) *Reader {
	r := &Reader{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadReferenceFile reads a reference annotation JSONL file and returns
// the spans keyed by page ID. Blank lines are skipped. A count field that
// disagrees with the actual excerpt list is logged as a warning but does
// not fail the read; the list is authoritative.
func (r *Reader) ReadReferenceFile(path string) (map[string][]model.Span, error) {
	pages := make(map[string][]model.Span)

	err := r.readLines(path, func(lineNo int, data []byte) error {
		var line referenceLine
		if err := json.Unmarshal(data, &line); err != nil {
			return err
		}
		if line.PageID == "" {
			return ErrEmptyPageID
		}
		if _, ok := pages[line.PageID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicatePage, line.PageID)
		}
		if line.NExcerpts != len(line.Excerpts) {
			r.logger.Warn("excerpt count disagrees with excerpt list",
				"page_id", line.PageID,
				"n_excerpts", line.NExcerpts,
				"actual", len(line.Excerpts),
			)
		}

		spans := make([]model.Span, 0, len(line.Excerpts))
		for _, e := range line.Excerpts {
			span, err := model.NewSpan(e.Start, e.End, e.PoemID)
			if err != nil {
				return fmt.Errorf("page %s: %w", line.PageID, err)
			}
			spans = append(spans, span)
		}
		pages[line.PageID] = spans
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// ReadSystemFile reads a system annotation JSONL file and returns the
// spans keyed by page ID. Validation matches ReadReferenceFile.
func (r *Reader) ReadSystemFile(path string) (map[string][]model.Span, error) {
	pages := make(map[string][]model.Span)

	err := r.readLines(path, func(lineNo int, data []byte) error {
		var line systemLine
		if err := json.Unmarshal(data, &line); err != nil {
			return err
		}
		if line.PageID == "" {
			return ErrEmptyPageID
		}
		if _, ok := pages[line.PageID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicatePage, line.PageID)
		}
		if line.NSpans != len(line.PoemSpans) {
			r.logger.Warn("span count disagrees with span list",
				"page_id", line.PageID,
				"n_spans", line.NSpans,
				"actual", len(line.PoemSpans),
			)
		}

		spans := make([]model.Span, 0, len(line.PoemSpans))
		for _, s := range line.PoemSpans {
			span, err := model.NewSpan(s.PageStart, s.PageEnd, s.RefID)
			if err != nil {
				return fmt.Errorf("page %s: %w", line.PageID, err)
			}
			spans = append(spans, span)
		}
		pages[line.PageID] = spans
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// ReadPages reads a reference file and a system file and pairs them into
// per-page annotation sets, sorted by page ID. A page present in only one
// file is kept with an empty span list for the other side: an undetected
// page still counts against recall, and detections on an unannotated page
// still count against precision.
func (r *Reader) ReadPages(referencePath, systemPath string) ([]*model.PageAnnotations, error) {
	refs, err := r.ReadReferenceFile(referencePath)
	if err != nil {
		return nil, fmt.Errorf("reference file: %w", err)
	}
	sys, err := r.ReadSystemFile(systemPath)
	if err != nil {
		return nil, fmt.Errorf("system file: %w", err)
	}
	return BuildPages(refs, sys), nil
}

// BuildPages pairs reference and system spans by page ID into a sorted
// slice of page annotation sets.
func BuildPages(refs, sys map[string][]model.Span) []*model.PageAnnotations {
	ids := make(map[string]struct{}, len(refs)+len(sys))
	for id := range refs {
		ids[id] = struct{}{}
	}
	for id := range sys {
		ids[id] = struct{}{}
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	pages := make([]*model.PageAnnotations, 0, len(sorted))
	for _, id := range sorted {
		pages = append(pages, model.NewPageAnnotations(id, refs[id], sys[id]))
	}
	return pages
}

// readLines streams a file line by line, calling fn for each non-blank
// line. Errors from fn are wrapped with the file path and line number.
func (r *Reader) readLines(path string, fn func(lineNo int, data []byte) error) error {
	f, err := os.Open(path) //nolint:gosec // User-provided input path is intentional
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // Read-only file

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := fn(lineNo, []byte(text)); err != nil {
			return fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
