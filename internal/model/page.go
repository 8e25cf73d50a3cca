package model

// PageAnnotations holds the two independent span collections for a single
// page: the ground-truth reference spans and the candidate system spans.
// Pages are evaluated independently, so this is the complete unit of input
// for one evaluation.
//
// Reference spans are non-overlapping by construction of the reference
// data; the evaluator does not enforce this but its scoring assumes it for
// spans sharing a label. System spans may overlap arbitrarily.
type PageAnnotations struct {
	// PageID identifies the page both span collections belong to.
	PageID string `json:"page_id"`

	// ReferenceSpans are the ground-truth poetry excerpt annotations,
	// sorted by (start, end).
	ReferenceSpans []Span `json:"reference_spans"`

	// SystemSpans are the detections produced by the system under
	// evaluation, sorted by (start, end).
	SystemSpans []Span `json:"system_spans"`
}

// NewPageAnnotations creates a PageAnnotations with both span collections
// sorted into the canonical (start, end) order the matcher depends on.
func NewPageAnnotations(pageID string, reference, system []Span) *PageAnnotations {
	SortSpans(reference)
	SortSpans(system)
	return &PageAnnotations{
		PageID:         pageID,
		ReferenceSpans: reference,
		SystemSpans:    system,
	}
}
