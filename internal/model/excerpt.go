package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Detection methods supported in excerpt annotation files, mapped to the
// single-letter prefixes used when deriving excerpt IDs.
var detectionMethodPrefixes = map[string]string{
	"adjudication": "a",
	"manual":       "m",
	"passim":       "p",
	"xml":          "x",
}

// combinedMethodPrefix is used when an excerpt was produced by more than
// one detection method.
const combinedMethodPrefix = "c"

// Excerpt validation errors.
var (
	// ErrNoDetectionMethod is returned when an excerpt lists no detection
	// method. Every excerpt must record how it was found.
	ErrNoDetectionMethod = errors.New("excerpt must specify at least one detection method")

	// ErrUnknownDetectionMethod is returned for detection methods outside
	// the supported set.
	ErrUnknownDetectionMethod = errors.New("unsupported detection method")
)

// Excerpt is a detected excerpt of poetry within a page's text, as stored
// in excerpt annotation files. Unlike Span it carries the excerpt's text
// and bookkeeping about how it was detected and identified.
type Excerpt struct {
	// PageID identifies the page the excerpt was found on.
	PageID string `json:"page_id"`

	// Start and End delimit the excerpt within the page text as a
	// half-open [Start, End) interval.
	Start int `json:"start"`
	End   int `json:"end"`

	// Text is the excerpt's text content.
	Text string `json:"text"`

	// DetectionMethods records which methods produced this excerpt.
	// Kept sorted so serialized output is deterministic.
	DetectionMethods []string `json:"detection_methods"`

	// PoemID is the identified reference poem, when known. Excerpts
	// without an identification are unlabeled.
	PoemID string `json:"poem_id,omitempty"`

	// Notes carries free-form annotator notes.
	Notes string `json:"notes,omitempty"`

	// ExcerptID is derived from the detection methods and interval,
	// e.g. "p@394:512". It is set by NewExcerpt and stable across merges
	// of label data onto the same excerpt.
	ExcerptID string `json:"excerpt_id"`
}

// NewExcerpt creates a validated Excerpt with its derived ID.
// The interval is validated with the same rules as NewSpan, and the
// detection method set must be non-empty and drawn from the supported set.
func NewExcerpt(pageID string, start, end int, text string, methods []string) (*Excerpt, error) {
	if _, err := NewSpan(start, end, ""); err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, ErrNoDetectionMethod
	}

	sorted := make([]string, len(methods))
	copy(sorted, methods)
	sort.Strings(sorted)
	for _, method := range sorted {
		if _, ok := detectionMethodPrefixes[method]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDetectionMethod, method)
		}
	}

	e := &Excerpt{
		PageID:           pageID,
		Start:            start,
		End:              end,
		Text:             text,
		DetectionMethods: sorted,
	}
	e.ExcerptID = e.deriveID()
	return e, nil
}

// deriveID builds the excerpt ID from the method prefix and interval.
func (e *Excerpt) deriveID() string {
	prefix := combinedMethodPrefix
	if len(e.DetectionMethods) == 1 {
		prefix = detectionMethodPrefixes[e.DetectionMethods[0]]
	}
	return fmt.Sprintf("%s@%d:%d", prefix, e.Start, e.End)
}

// Labeled reports whether the excerpt has been identified with a poem.
func (e *Excerpt) Labeled() bool {
	return e.PoemID != ""
}

// AddDetectionMethods unions the given methods into the excerpt's set,
// keeping it sorted and deduplicated. The excerpt ID is rederived since the
// method prefix may change (e.g. to the combined prefix).
func (e *Excerpt) AddDetectionMethods(methods ...string) error {
	seen := make(map[string]bool, len(e.DetectionMethods)+len(methods))
	for _, m := range e.DetectionMethods {
		seen[m] = true
	}
	for _, m := range methods {
		if _, ok := detectionMethodPrefixes[m]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDetectionMethod, m)
		}
		seen[m] = true
	}

	e.DetectionMethods = e.DetectionMethods[:0]
	for m := range seen {
		e.DetectionMethods = append(e.DetectionMethods, m)
	}
	sort.Strings(e.DetectionMethods)
	e.ExcerptID = e.deriveID()
	return nil
}

// AppendNotes concatenates additional notes onto the excerpt, separating
// existing and new text with a newline and trimming outer newlines.
func (e *Excerpt) AppendNotes(notes string) {
	if notes == "" {
		return
	}
	if e.Notes == "" {
		e.Notes = strings.Trim(notes, "\n")
		return
	}
	e.Notes = strings.Trim(e.Notes+"\n"+notes, "\n")
}

// Span returns the excerpt's interval as a Span labeled with its poem ID.
func (e *Excerpt) Span() Span {
	return Span{Start: e.Start, End: e.End, Label: e.PoemID}
}
