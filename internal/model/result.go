package model

import "time"

// PageResult is the outcome of evaluating one page. All quantities are
// derived from the page's span collections during evaluation; none are
// independently mutable afterwards.
type PageResult struct {
	// PageID identifies the evaluated page.
	PageID string `json:"page_id"`

	// Precision is the page-level precision in [0, 1]: the relevance
	// score divided by the number of working system spans.
	Precision float64 `json:"precision"`

	// Recall is the page-level recall in [0, 1]: the relevance score
	// divided by the number of reference spans.
	Recall float64 `json:"recall"`

	// NSpanMatches counts reference spans that found a system span with
	// positive overlap.
	NSpanMatches int `json:"n_span_matches"`

	// NSpanMisses counts reference spans with no overlapping system span.
	NSpanMisses int `json:"n_span_misses"`

	// NSpanSpurious counts system spans never selected by any reference
	// span.
	NSpanSpurious int `json:"n_span_spurious"`

	// NPoemMatches counts distinct poem labels with at least one matched
	// reference span.
	NPoemMatches int `json:"n_poem_matches"`

	// NPoemMisses counts distinct poem labels all of whose reference
	// spans went unmatched.
	NPoemMisses int `json:"n_poem_misses"`

	// NPoemSpurious counts distinct system labels that have no reference
	// span at all on the page. Always 0 in ignore-label mode, where
	// system spans carry no label.
	NPoemSpurious int `json:"n_poem_spurious"`

	// Error records why the page's evaluation was aborted, if it was.
	// A failed page contributes no scores but never aborts the batch.
	Error string `json:"error,omitempty"`
}

// Failed reports whether this page's evaluation was aborted.
func (r *PageResult) Failed() bool {
	return r.Error != ""
}

// EvalReport is the aggregate outcome of evaluating a batch of pages.
// Page results appear in input order regardless of the concurrency used to
// compute them.
type EvalReport struct {
	// ReferenceFile and SystemFile record the evaluated inputs.
	ReferenceFile string `json:"reference_file"`
	SystemFile    string `json:"system_file"`

	// IgnoreLabel and PartialMatchWeight echo the evaluation
	// configuration so a stored report is self-describing.
	IgnoreLabel        bool    `json:"ignore_label"`
	PartialMatchWeight float64 `json:"partial_match_weight"`

	// DateEvaluated is when the evaluation ran.
	DateEvaluated time.Time `json:"date_evaluated"`

	// Pages holds one result per evaluated page, in input order.
	Pages []*PageResult `json:"pages"`

	// MacroPrecision and MacroRecall are the unweighted means of the
	// per-page scores over pages that evaluated successfully.
	MacroPrecision float64 `json:"macro_precision"`
	MacroRecall    float64 `json:"macro_recall"`

	// PagesEvaluated and PagesFailed partition the input pages.
	PagesEvaluated int `json:"pages_evaluated"`
	PagesFailed    int `json:"pages_failed"`
}

// MatchTotals sums the per-page match counts across a report.
type MatchTotals struct {
	SpanMatches  int `json:"span_matches"`
	SpanMisses   int `json:"span_misses"`
	SpanSpurious int `json:"span_spurious"`
	PoemMatches  int `json:"poem_matches"`
	PoemMisses   int `json:"poem_misses"`
	PoemSpurious int `json:"poem_spurious"`
}

// Totals sums match counts over the pages that evaluated successfully.
func (r *EvalReport) Totals() MatchTotals {
	var t MatchTotals
	for _, page := range r.Pages {
		if page.Failed() {
			continue
		}
		t.SpanMatches += page.NSpanMatches
		t.SpanMisses += page.NSpanMisses
		t.SpanSpurious += page.NSpanSpurious
		t.PoemMatches += page.NPoemMatches
		t.PoemMisses += page.NPoemMisses
		t.PoemSpurious += page.NPoemSpurious
	}
	return t
}

// NewEvalReport assembles an EvalReport from per-page results, computing
// the macro averages over the pages that evaluated successfully.
func NewEvalReport(refFile, sysFile string, ignoreLabel bool, weight float64, pages []*PageResult) *EvalReport {
	report := &EvalReport{
		ReferenceFile:      refFile,
		SystemFile:         sysFile,
		IgnoreLabel:        ignoreLabel,
		PartialMatchWeight: weight,
		DateEvaluated:      time.Now(),
		Pages:              pages,
	}

	var sumPrecision, sumRecall float64
	for _, page := range pages {
		if page.Failed() {
			report.PagesFailed++
			continue
		}
		report.PagesEvaluated++
		sumPrecision += page.Precision
		sumRecall += page.Recall
	}
	if report.PagesEvaluated > 0 {
		report.MacroPrecision = sumPrecision / float64(report.PagesEvaluated)
		report.MacroRecall = sumRecall / float64(report.PagesEvaluated)
	}
	return report
}
