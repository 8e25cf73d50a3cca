// Package merge combines excerpt annotation files produced by different
// detection methods into one deduplicated set.
//
// Detection pipelines each emit their own excerpt file for a corpus: one
// from passim alignment, one from XML markup, one from manual review.
// Merging folds records that describe the same stretch of the same page
// into a single excerpt whose detection method set is the union of its
// sources. Records that identify the same stretch as different poems are
// deliberately kept apart, since they are competing identifications that
// need adjudication, not duplicates.
package merge
