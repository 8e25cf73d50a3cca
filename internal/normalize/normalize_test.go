package normalize

import "testing"

// TestSearchText tests the text cleanup rules.
func TestSearchText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text unchanged",
			in:   "The curfew tolls the knell of parting day",
			want: "The curfew tolls the knell of parting day",
		},
		{
			name: "intra-word hyphen removed",
			in:   "to-day and to-morrow",
			want: "today and tomorrow",
		},
		{
			name: "intra-word apostrophe removed",
			in:   "o'er the hills",
			want: "oer the hills",
		},
		{
			name: "chained hyphens all removed",
			in:   "ne'er-do-well",
			want: "neerdowell",
		},
		{
			name: "metrical break healed",
			in:   "falling sudden | -ly to earth",
			want: "falling suddenly to earth",
		},
		{
			name: "punctuation becomes space",
			in:   "Hark! the herald, angels; sing:",
			want: "Hark the herald angels sing",
		},
		{
			name: "indent entity removed",
			in:   "&indent;Half a league onward",
			want: "Half a league onward",
		},
		{
			name: "whitespace collapsed",
			in:   "line one\n\tline  two\r\n",
			want: "line one line two",
		},
		{
			name: "curly quotes folded before punctuation pass",
			in:   "“quoted” and ‘this’",
			want: "quoted and this",
		},
		{
			name: "long s folded",
			in:   "the ſilent ſea",
			want: "the silent sea",
		},
		{
			name: "accents stripped",
			in:   "café élégie naïve",
			want: "cafe elegie naive",
		},
		{
			name: "leading and trailing space stripped",
			in:   "  centered line  ",
			want: "centered line",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "case preserved",
			in:   "The RIME of the Ancient Mariner",
			want: "The RIME of the Ancient Mariner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := SearchText(tt.in); got != tt.want {
				t.Errorf("SearchText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestSearchTextAlignsExcerptWithSource verifies that an OCR'd excerpt
// and its clean source text normalize to the same string.
func TestSearchTextAlignsExcerptWithSource(t *testing.T) {
	t.Parallel()

	ocr := "  The ploughman homeward plods his wea-ry way,\nAnd leaves the world to darkneſs, and to me."
	source := "The ploughman homeward plods his weary way, And leaves the world to darkness, and to me."

	if got, want := SearchText(ocr), SearchText(source); got != want {
		t.Errorf("normalized excerpt %q differs from normalized source %q", got, want)
	}
}

// TestComparisonKey tests the case-insensitive variant.
func TestComparisonKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
	}{
		{
			name: "author with honorific punctuation",
			a:    "Walter, Sir Scott",
			b:    "walter sir scott",
		},
		{
			name: "title case and punctuation",
			a:    "CORONACH.",
			b:    "Coronach",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if ka, kb := ComparisonKey(tt.a), ComparisonKey(tt.b); ka != kb {
				t.Errorf("ComparisonKey(%q) = %q, ComparisonKey(%q) = %q; want equal",
					tt.a, ka, tt.b, kb)
			}
		})
	}
}
