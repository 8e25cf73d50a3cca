package merge

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/nao1215/poemeval/internal/model"
	"github.com/nao1215/poemeval/internal/normalize"
)

// maxLineBytes is the scanner buffer limit for a single JSONL line.
// Excerpt records carry the excerpt text, so lines run longer than the
// page annotation files; a full page of verse still fits comfortably.
const maxLineBytes = 10 * 1024 * 1024

// Merger combines excerpt records from multiple annotation files.
type Merger struct {
	logger *slog.Logger
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithMergerLogger sets the logger used for merge diagnostics.
func WithMergerLogger(logger *slog.Logger) MergerOption {
	return func(m *Merger) {
		m.logger = logger
	}
}

// NewMerger creates a Merger with the given options.
func NewMerger(opts ...MergerOption) *Merger {
	m := &Merger{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// mergeKey groups records that describe the same identified stretch.
// Records whose poem IDs conflict get distinct keys and stay separate.
type mergeKey struct {
	pageID string
	start  int
	end    int
	poemID string
}

// Merge folds records describing the same stretch of the same page into
// one excerpt each. Detection method sets are unioned, notes are
// concatenated, and an identification from any source is kept. Input
// order does not matter; output is sorted by page, interval, then poem.
func (m *Merger) Merge(excerpts []*model.Excerpt) ([]*model.Excerpt, error) {
	// First pass: fold unlabeled records onto a labeled record of the
	// same stretch when exactly one identification exists. An unlabeled
	// record is only a duplicate of a labeled one, never of two labeled
	// ones that disagree.
	labels := make(map[mergeKey][]string)
	for _, e := range excerpts {
		if !e.Labeled() {
			continue
		}
		key := mergeKey{pageID: e.PageID, start: e.Start, end: e.End}
		if !contains(labels[key], e.PoemID) {
			labels[key] = append(labels[key], e.PoemID)
		}
	}

	merged := make(map[mergeKey]*model.Excerpt)
	for _, e := range excerpts {
		poemID := e.PoemID
		if poemID == "" {
			stretch := mergeKey{pageID: e.PageID, start: e.Start, end: e.End}
			if ids := labels[stretch]; len(ids) == 1 {
				poemID = ids[0]
			} else if len(ids) > 1 {
				m.logger.Warn("unlabeled excerpt matches conflicting identifications; keeping unlabeled",
					"page_id", e.PageID,
					"excerpt_id", e.ExcerptID,
				)
			}
		}

		key := mergeKey{pageID: e.PageID, start: e.Start, end: e.End, poemID: poemID}
		existing, ok := merged[key]
		if !ok {
			clone, err := model.NewExcerpt(e.PageID, e.Start, e.End, e.Text, e.DetectionMethods)
			if err != nil {
				return nil, fmt.Errorf("excerpt %s on page %s: %w", e.ExcerptID, e.PageID, err)
			}
			clone.PoemID = poemID
			clone.AppendNotes(e.Notes)
			merged[key] = clone
			continue
		}

		if err := existing.AddDetectionMethods(e.DetectionMethods...); err != nil {
			return nil, fmt.Errorf("excerpt %s on page %s: %w", e.ExcerptID, e.PageID, err)
		}
		if !strings.Contains(existing.Notes, e.Notes) {
			existing.AppendNotes(e.Notes)
		}
		if existing.Text == "" {
			existing.Text = e.Text
		} else if e.Text != "" &&
			normalize.ComparisonKey(existing.Text) != normalize.ComparisonKey(e.Text) {
			// Same stretch, materially different text. Keep the first
			// text seen; the records likely came from different OCR runs.
			m.logger.Warn("merged excerpts disagree on text; keeping first",
				"page_id", e.PageID,
				"excerpt_id", existing.ExcerptID,
			)
		}
	}

	result := make([]*model.Excerpt, 0, len(merged))
	for _, e := range merged {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.PageID != b.PageID {
			return a.PageID < b.PageID
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.PoemID < b.PoemID
	})
	return result, nil
}

// ReadExcerptFile reads an excerpt annotation JSONL file.
// Blank lines are skipped. Each record is re-validated and its excerpt ID
// rederived, so files from older tool versions with stale IDs still load.
func (m *Merger) ReadExcerptFile(path string) ([]*model.Excerpt, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided input path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // Read-only file

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var excerpts []*model.Excerpt
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var raw model.Excerpt
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}

		e, err := model.NewExcerpt(raw.PageID, raw.Start, raw.End, raw.Text, raw.DetectionMethods)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		e.PoemID = raw.PoemID
		e.Notes = raw.Notes
		excerpts = append(excerpts, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return excerpts, nil
}

// WriteExcerptFile writes excerpts as JSONL, one record per line.
func (m *Merger) WriteExcerptFile(w io.Writer, excerpts []*model.Excerpt) error {
	enc := json.NewEncoder(w)
	for _, e := range excerpts {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("excerpt %s on page %s: %w", e.ExcerptID, e.PageID, err)
		}
	}
	return nil
}

// MergeFiles reads all input files, merges their records, and writes the
// combined set to w.
func (m *Merger) MergeFiles(paths []string, w io.Writer) error {
	var all []*model.Excerpt
	for _, path := range paths {
		excerpts, err := m.ReadExcerptFile(path)
		if err != nil {
			return err
		}
		m.logger.Debug("read excerpt file", "path", path, "excerpts", len(excerpts))
		all = append(all, excerpts...)
	}

	merged, err := m.Merge(all)
	if err != nil {
		return err
	}
	m.logger.Debug("merged excerpts", "input", len(all), "output", len(merged))

	return m.WriteExcerptFile(w, merged)
}

// contains reports whether s is present in list.
func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
