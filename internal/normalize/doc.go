// Package normalize prepares literary text for matching.
//
// OCR'd page text and reference poem text differ in ways that defeat
// naive string comparison: long s, curly quotes, accents surviving from
// transcription, hyphenation and metrical notation splitting words, and
// inconsistent whitespace. SearchText collapses all of these so that an
// excerpt and its source poem produce the same searchable string, and
// ComparisonKey does the same more aggressively for author/title
// equality checks.
package normalize
