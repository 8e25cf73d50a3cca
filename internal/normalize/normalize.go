package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// intraWordPunct matches a hyphen or apostrophe inside a word, as in
	// "to-day" or "o'er". These are removed rather than spaced so the
	// joined word survives as a search term.
	intraWordPunct = regexp.MustCompile(`(\w)[-'](\w)`)

	// metricalBreak matches metrical notation that splits a word across a
	// line boundary, e.g. "sudden | -ly" or "visit | -or".
	metricalBreak = regexp.MustCompile(`(\w) \| -(\w)`)

	// punct matches ASCII punctuation, replaced with spaces.
	punct = regexp.MustCompile(`[[:punct:]]`)

	// whitespaceRun matches any run of whitespace, collapsed to one space.
	whitespaceRun = regexp.MustCompile(`[\t\n\v\f\r ]+`)
)

// quoteReplacer maps typographic characters onto their ASCII equivalents.
// Long s is the most common survivor of 18th-century typography in OCR.
var quoteReplacer = strings.NewReplacer(
	"“", `"`, // left double curly quote
	"”", `"`, // right double curly quote
	"‘", "'", // left single curly quote
	"’", "'", // right single curly quote
	"ſ", "s", // long s
)

// accentFolder strips combining marks: decompose, drop the marks,
// recompose. "café" and "cafe" normalize identically.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SearchText converts text into a searchable string. Word-splitting
// punctuation is healed, remaining punctuation becomes spaces, whitespace
// collapses to single spaces, typographic characters fold to ASCII, and
// accents are stripped. Case is preserved so matched output stays
// readable.
func SearchText(text string) string {
	// Heal split words before punctuation removal would space them apart.
	s := replaceAllStable(intraWordPunct, text, "$1$2")
	s = metricalBreak.ReplaceAllString(s, "$1$2")

	// The Chadwyck-Healey corpus leaks indent entities into plain text.
	// Remove before punctuation handling mangles the & and ; markers.
	s = strings.ReplaceAll(s, "&indent;", " ")

	s = quoteReplacer.Replace(s)
	s = punct.ReplaceAllString(s, " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = foldAccents(s)
	return strings.TrimSpace(s)
}

// ComparisonKey converts a short field like an author or title into a
// canonical key for equality checks. On top of SearchText's rules it
// lowercases, so "Walter, Sir Scott" and "walter sir scott" compare equal.
func ComparisonKey(text string) string {
	return strings.ToLower(SearchText(text))
}

// replaceAllStable applies the replacement until the string stops
// changing. A single ReplaceAllString pass misses overlapping matches
// like the second hyphen of "a-b-c", because the shared letter is
// consumed by the first match.
func replaceAllStable(re *regexp.Regexp, s, replacement string) string {
	for {
		next := re.ReplaceAllString(s, replacement)
		if next == s {
			return next
		}
		s = next
	}
}

// foldAccents strips combining marks from the string. If transformation
// fails (malformed UTF-8), the input is returned unchanged rather than
// truncated.
func foldAccents(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return folded
}
