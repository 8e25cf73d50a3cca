package chadwyck

import "strings"

// entityMap translates the custom SGML entities found in the
// Chadwyck-Healey corpus to Unicode. Entries are based on the entities
// that actually occur in the corpus; obscure Greek combining forms are
// added as they turn up in parse warnings.
var entityMap = map[string]string{
	"&indent;": "\t", // treat indents as tabs
	"&yogh;":   "ȝ",  // U+021D
	"&YOGH;":   "Ȝ",  // U+021C
	"&point;":  ".",
	"&pbar;":   "ꝑ", // p with stroke, medieval abbreviation (U+A751)
	"&ibreve;": "ĭ", // U+012D
	"&eshort;": "ĕ", // e with breve (U+0115)
	"&ishort;": "ĭ", // U+012D

	// letters with bar / macron
	"&abar;": "ā",        // U+0101
	"&ebar;": "ē",        // U+0113
	"&ibar;": "ī",        // U+012B
	"&obar;": "ō",        // U+014D
	"&mbar;": "m̄", // m + combining macron
	"&nbar;": "n̄", // n + combining macron
	"&ubar;": "ū",        // U+016B

	// dashes
	"&lblank;":  "—", // long blank rendered as em dash
	"&sblankl;": "-",      // acts like short dash
	"&wblank;":  "—", // acts like em dash

	// superscript letters
	"&supera;": "ᵃ", // U+1D43
	"&superb;": "ᵇ", // U+1D47
	"&superB;": "ᴮ", // U+1D2D
	"&superc;": "ᶜ", // U+1D9C
	"&superd;": "ᵈ", // U+1D48
	"&supere;": "ᵉ", // U+1D49
	"&superh;": "ʰ", // U+02B0
	"&superi;": "ⁱ", // U+2071
	"&superl;": "ˡ", // U+02E1
	"&superm;": "ᵐ", // U+1D50
	"&supern;": "ⁿ", // U+207F
	"&supero;": "ᵒ", // U+1D52
	"&superr;": "ʳ", // U+02B3
	"&superR;": "ᴿ", // U+1D3F
	"&supers;": "ˢ", // U+02E2
	"&supert;": "ᵗ", // U+1D57
	"&superu;": "ᵘ", // U+1D58

	// Greek characters (bare letters; accented forms added on demand)
	"&gra;": "α", // U+03B1
	"&grA;": "Α", // U+0391
	"&grb;": "β", // U+03B2
	"&grB;": "Β", // U+0392
	"&grd;": "δ", // U+03B4
	"&grD;": "Δ", // U+0394
	"&gre;": "ε", // U+03B5
	"&grE;": "Ε", // U+0395
	"&grf;": "φ", // U+03C6
	"&grF;": "Φ", // U+03A6
	"&grg;": "γ", // U+03B3
	"&grG;": "Γ", // U+0393
	"&grh;": "η", // U+03B7
	"&grH;": "Η", // U+0397
	"&gri;": "ι", // U+03B9
	"&grl;": "λ", // U+03BB
	"&grm;": "μ", // U+03BC
	"&grn;": "ν", // U+03BD
	"&gro;": "ο", // U+03BF
	"&grp;": "π", // U+03C0
	"&grr;": "ρ", // U+03C1
	"&grs;": "σ", // U+03C3
	"&grt;": "τ", // U+03C4
	"&gru;": "υ", // U+03C5
	"&grw;": "ω", // U+03C9
}

// entityReplacer is built once from entityMap for fast replacement.
var entityReplacer = buildEntityReplacer()

func buildEntityReplacer() *strings.Replacer {
	pairs := make([]string, 0, len(entityMap)*2)
	for entity, replacement := range entityMap {
		pairs = append(pairs, entity, replacement)
	}
	return strings.NewReplacer(pairs...)
}

// ReplaceEntities replaces the corpus's custom SGML entities with their
// Unicode equivalents. Text without an ampersand is returned as-is.
func ReplaceEntities(text string) string {
	if !strings.Contains(text, "&") {
		return text
	}
	return entityReplacer.Replace(text)
}
