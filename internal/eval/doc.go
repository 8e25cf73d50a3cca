// Package eval implements the page-level poetry-span evaluation algorithm.
//
// For each page, reference (ground truth) spans are compared against system
// (detected) spans in four ordered stages: optional preprocessing that
// merges overlapping system spans when poem labels are ignored, matching of
// each reference span to its best-overlapping system span, splitting of
// system spans that were selected by several reference spans, and scoring,
// which turns the resulting pairs into a relevance score and the page's
// precision and recall.
//
// The stages run as a strictly linear pipeline executed once per page.
// Pages share no state, so batches of pages are evaluated as a parallel
// map with deterministic, order-preserving results.
package eval
