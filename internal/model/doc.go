// Package model defines the core data structures used throughout poemeval.
//
// This package contains the following main types:
//   - Span: A half-open character interval with an optional poem label
//   - PageAnnotations: The reference and system spans for one page
//   - Excerpt: A poetry excerpt record as stored in annotation files
//   - PageResult: Per-page precision/recall and match counts
//   - EvalReport: The aggregate result of evaluating a batch of pages
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (eval, ingest, report, database) need to use
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
