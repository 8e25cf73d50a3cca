// Package chadwyck parses Chadwyck-Healey poem files (.TML), the corpus
// format behind the reference poem dataset.
//
// TML is an SGML-flavored markup with custom entities and a loose,
// inconsistently applied structure: most poems mark lines with
// <div type="line">, but concrete poems live in <pre><sl> blocks,
// some files embed line divs inside paragraphs, and the oldest ones
// carry bare <p> or even <ul><li> text. Extraction follows a cascading
// strategy that tries the structured forms first and falls back to the
// loose ones, mirroring how the corpus actually varies.
//
// The package produces two outputs per poem: the plain text of the poem
// and a metadata record (author, title, edition, period, genre, rhyme
// scheme) suitable for a corpus-wide CSV.
package chadwyck
