// Package ingest reads page annotation files and pairs reference pages
// with system pages for evaluation.
//
// Both input files use JSON Lines: one JSON object per line, one line per
// page. The reference file carries adjudicated ground-truth excerpts; the
// system file carries detected poem spans. The two shapes differ because
// they come from different stages of the annotation workflow:
//
//	reference: {"page_id": "...", "n_excerpts": 2, "excerpts": [{"start": 0, "end": 10, "poem_id": "Z1"}]}
//	system:    {"page_id": "...", "n_spans": 1, "poem_spans": [{"page_start": 0, "page_end": 10, "ref_id": "Z1"}]}
//
// Pages are paired by page_id. A page present in only one file still
// participates in evaluation with an empty span list for the other side,
// since missing detections and missing ground truth both carry signal.
package ingest
