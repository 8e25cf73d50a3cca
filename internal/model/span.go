package model

import (
	"errors"
	"fmt"
	"sort"
)

// Span validation errors.
// These are returned by NewSpan and checked at ingestion so that malformed
// annotation records are rejected before they can skew a page's scores.
var (
	// ErrSpanOrder is returned when a span's start index is not strictly
	// less than its end index. Spans are half-open [start, end) intervals,
	// so an empty or inverted interval carries no annotated text.
	ErrSpanOrder = errors.New("span start index must be less than end index")

	// ErrSpanNegative is returned when a span has a negative start index.
	// Character offsets into page text are always non-negative.
	ErrSpanNegative = errors.New("span start index must be non-negative")
)

// Span represents a half-open interval [Start, End) over the character
// positions of a page's text, optionally labeled with the identifier of the
// reference poem it belongs to. An empty Label is permitted only when poem
// labels are being ignored during evaluation.
type Span struct {
	// Start is the inclusive start offset of the interval.
	Start int `json:"start"`

	// End is the exclusive end offset of the interval.
	End int `json:"end"`

	// Label identifies the reference poem this span was annotated with.
	// Empty when labels are unavailable or ignored.
	Label string `json:"label,omitempty"`
}

// NewSpan creates a validated Span. It returns ErrSpanNegative for a
// negative start index and ErrSpanOrder when end <= start.
//
// Note: zero-width spans can still arise internally as the residue of
// splitting a system span across duplicate reference starts. Those are
// constructed as literals by the splitter, never through NewSpan, and they
// score zero overlap against every reference span.
func NewSpan(start, end int, label string) (Span, error) {
	if start < 0 {
		return Span{}, fmt.Errorf("%w: got %d", ErrSpanNegative, start)
	}
	if end <= start {
		return Span{}, fmt.Errorf("%w: got [%d, %d)", ErrSpanOrder, start, end)
	}
	return Span{Start: start, End: end, Label: label}, nil
}

// Len returns the number of character positions the span covers.
func (s Span) Len() int {
	return s.End - s.Start
}

// String returns a compact human-readable form used in logs and errors.
func (s Span) String() string {
	if s.Label == "" {
		return fmt.Sprintf("[%d, %d)", s.Start, s.End)
	}
	return fmt.Sprintf("[%d, %d, %s)", s.Start, s.End, s.Label)
}

// HasOverlap reports whether this span intersects the other span.
// In label-aware mode (ignoreLabel false) spans with differing labels never
// overlap; with ignoreLabel true the intervals alone decide.
func (s Span) HasOverlap(other Span, ignoreLabel bool) bool {
	if ignoreLabel || s.Label == other.Label {
		return s.Start < other.End && other.Start < s.End
	}
	return false
}

// IsExactMatch reports whether the other span covers exactly the same
// interval, and, unless ignoreLabel is set, carries the same label.
func (s Span) IsExactMatch(other Span, ignoreLabel bool) bool {
	if s.Start == other.Start && s.End == other.End {
		return ignoreLabel || s.Label == other.Label
	}
	return false
}

// OverlapLength returns the number of character positions shared by the two
// spans, or 0 when they do not overlap.
func (s Span) OverlapLength(other Span, ignoreLabel bool) int {
	if !s.HasOverlap(other, ignoreLabel) {
		return 0
	}
	return min(s.End, other.End) - max(s.Start, other.Start)
}

// OverlapFactor returns the degree of overlap between the two spans:
//
//	overlap_factor = overlap_length / longer_span_length
//
// The result lies in [0, 1]; it is 0 when the spans do not intersect and 1
// only when the intervals are identical. The longer-span denominator means
// a detection that swallows a short excerpt inside a long span still scores
// low, which is the intended penalty for imprecise detections.
//
// The denominator is always positive as long as at least one operand has
// positive width, so zero-width split residue is safe to score against any
// well-formed span.
func (s Span) OverlapFactor(other Span, ignoreLabel bool) float64 {
	overlap := s.OverlapLength(other, ignoreLabel)
	if overlap <= 0 {
		return 0
	}
	return float64(overlap) / float64(max(s.Len(), other.Len()))
}

// SortSpans orders spans primarily by start index and secondarily by end
// index, in place. All span collections are kept in this order so that the
// matcher's tie-break (first strictly better candidate wins) is
// deterministic across runs.
func SortSpans(spans []Span) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})
}

// MergeSpans collapses overlapping or touching spans into maximal runs.
// The input must be sorted by SortSpans order. The returned spans are
// disjoint, cover the same union of positions, and carry no label; this is
// the preprocessing applied to system spans when poem labels are ignored,
// where overlapping detections should not be double-counted.
func MergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}

	merged := make([]Span, 0, len(spans))
	for i, span := range spans {
		unlabeled := Span{Start: span.Start, End: span.End}
		if i == 0 {
			merged = append(merged, unlabeled)
			continue
		}

		// Touching runs merge too: a detector that reports [0,5) and
		// [5,9) found one contiguous region of poetry.
		prev := &merged[len(merged)-1]
		if unlabeled.Start <= prev.End {
			prev.End = max(prev.End, unlabeled.End)
		} else {
			merged = append(merged, unlabeled)
		}
	}
	return merged
}
