package chadwyck

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// copyrightPlaceholder marks poems whose text could not be licensed.
// Files containing only this sentence have no poetry to extract.
const copyrightPlaceholder = "[Copyright permission not received at this time.]"

// stanzaTypes are the div types that group lines into stanzas. A change
// of stanza ancestor between consecutive lines produces a blank line.
var stanzaTypes = map[string]bool{
	"stanza":    true,
	"versepara": true,
	"strophe":   true,
	"epigraph":  true,
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	blankLineRun  = regexp.MustCompile(`\n\s*\n`)
)

// Poem is the parsed content of one TML file.
type Poem struct {
	// Filename is the base name of the source file.
	Filename string

	// Metadata holds the poem's bibliographic record.
	Metadata Metadata

	// Text is the extracted plain text of the poem.
	Text string
}

// Metadata is the bibliographic record extracted from a TML head section.
// Field order matches the corpus metadata CSV.
type Metadata struct {
	Filename        string
	AuthorLastname  string
	AuthorFirstname string
	AuthorBirth     string
	AuthorDeath     string
	AuthorPeriod    string
	TranslLastname  string
	TranslFirstname string
	TranslBirth     string
	TranslDeath     string
	TitleID         string
	TitleMain       string
	TitleSub        string
	EditionID       string
	EditionText     string
	Period          string
	Genre           string
	Rhymes          string
}

// Parser parses Chadwyck-Healey TML files.
type Parser struct {
	logger *slog.Logger
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithParserLogger sets the logger used for parse diagnostics.
func WithParserLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		p.logger = logger
	}
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads and parses one TML file. The corpus mixes UTF-8,
// Latin-1, and Windows-1252 files; encoding is sniffed and transcoded
// before parsing.
func (p *Parser) ParseFile(path string) (*Poem, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // User-provided corpus path is intentional
	if err != nil {
		return nil, err
	}

	poem, err := p.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	poem.Filename = baseName(path)
	poem.Metadata.Filename = poem.Filename
	return poem, nil
}

// Parse parses raw TML content.
func (p *Parser) Parse(raw []byte) (*Poem, error) {
	decoded, err := decode(raw)
	if err != nil {
		return nil, err
	}

	// The HTML parser treats <title> as raw text, which would flatten the
	// <main>/<sub>/<edition> children TML nests inside it. Rename the tag
	// before parsing so it stays a normal element.
	decoded = strings.ReplaceAll(decoded, "<title>", "<tml-title>")
	decoded = strings.ReplaceAll(decoded, "<title ", "<tml-title ")
	decoded = strings.ReplaceAll(decoded, "</title>", "</tml-title>")

	doc, err := html.Parse(strings.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("failed to parse TML: %w", err)
	}

	poem := &Poem{
		Metadata: p.extractMetadata(doc),
		Text:     p.extractText(doc),
	}
	return poem, nil
}

// decode transcodes raw bytes to UTF-8. ASCII and valid UTF-8 pass
// through; anything else is sniffed, which lands on Windows-1252 for the
// corpus's single-byte files.
func decode(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	e, _, _ := charset.DetermineEncoding(raw, "")
	decoded, err := e.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode file: %w", err)
	}
	return string(decoded), nil
}

// cleanText normalizes extracted text: whitespace collapses to single
// spaces, custom entities become Unicode, and outer whitespace is
// stripped. Entity replacement runs after the whitespace collapse so
// tabs produced by &indent; survive.
func cleanText(text string) string {
	if text == "" {
		return ""
	}
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = ReplaceEntities(text)
	return strings.Trim(text, " \t\n")
}

// nodeText extracts clean text from an element, uppercasing small-caps
// spans the way they render in print.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	collectText(n, &sb, false)
	return cleanText(sb.String())
}

// collectText walks the subtree appending text content. Small-caps spans
// render uppercase; other inline formatting is dropped.
func collectText(n *html.Node, sb *strings.Builder, smallCaps bool) {
	if n.Type == html.TextNode {
		if smallCaps {
			sb.WriteString(strings.ToUpper(n.Data))
		} else {
			sb.WriteString(n.Data)
		}
		return
	}
	caps := smallCaps
	if n.Type == html.ElementNode && n.Data == "span" {
		switch attr(n, "class") {
		case "smcap", "smcapit":
			caps = true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb, caps)
	}
}

// rawText returns the subtree's text without cleaning, preserving the
// literal entity strings and spacing of the source.
func rawText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// extractText pulls the poem text out of the parsed document.
// The cascade tries structured forms first:
//  1. Remove notes and copyright blocks.
//  2. Collect concrete-poem lines from <pre><sl> blocks.
//  3. Collect paragraphs that embed line divs inline.
//  4. Collect standard <div type="line"> elements, with stanza breaks.
//  5. Fall back to bare <p> text, then <ul><li>, then give up.
func (p *Parser) extractText(doc *html.Node) string {
	body := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "body"
	})
	if body == nil {
		p.logger.Warn("no body found in document")
		return ""
	}

	// Step 1: notes and copyright blocks carry no poem text.
	for _, n := range findAll(body, isNoteNode) {
		detach(n)
	}

	// Step 2: concrete poems preserve spatial layout in <pre><sl> blocks.
	// Their lines keep raw spacing; only entities are replaced.
	var concreteLines []string
	for _, pre := range findAll(body, elementNamed("pre")) {
		slTags := findAll(pre, elementNamed("sl"))
		if len(slTags) == 0 {
			p.logger.Warn("pre block without sl tags")
		}
		for _, sl := range slTags {
			line := strings.TrimRight(ReplaceEntities(rawText(sl)), "\r\n")
			if strings.TrimSpace(line) != "" {
				concreteLines = append(concreteLines, line)
			}
		}
		detach(pre)
	}

	// Step 3: some files embed line divs inside paragraphs. Take each such
	// paragraph whole so surrounding prose is not lost.
	var inlineParagraphs []string
	for _, para := range findAll(body, elementNamed("p")) {
		hasLineChild := false
		for c := para.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "div" && isLineType(attr(c, "type")) {
				hasLineChild = true
				break
			}
		}
		if !hasLineChild {
			continue
		}
		if text := nodeText(para); text != "" {
			inlineParagraphs = append(inlineParagraphs, text)
		}
		detach(para)
	}

	// Step 4: standard line divs. A firstline div wrapping nested line
	// divs would double its text, so it is skipped.
	var lineDivs []*html.Node
	for _, div := range findAll(body, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" && isLineType(attr(n, "type"))
	}) {
		if attr(div, "type") == "firstline" && findFirst(div, func(n *html.Node) bool {
			return n != div && n.Type == html.ElementNode && n.Data == "div" && attr(n, "type") == "line"
		}) != nil {
			continue
		}
		lineDivs = append(lineDivs, div)
	}

	if len(lineDivs) == 0 {
		return p.fallbackText(body, concreteLines, inlineParagraphs)
	}

	var lines []string
	var lastStanza *html.Node
	for i, div := range lineDivs {
		stanza := ancestor(div, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "div" && stanzaTypes[attr(n, "type")]
		})
		if i > 0 && stanza != lastStanza {
			lines = append(lines, "")
		}
		lastStanza = stanza

		text := nodeText(div)
		if indents := strings.Count(rawText(div), "&indent"); indents > 0 {
			text = strings.Repeat("\t", indents) + strings.TrimLeft(text, " \t")
		}
		lines = append(lines, text)
	}

	linesText := strings.TrimSpace(blankLineRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
	return assemble(concreteLines, inlineParagraphs, linesText)
}

// fallbackText handles documents without line divs: bare paragraphs,
// list items, or figure-only files with no text at all.
func (p *Parser) fallbackText(body *html.Node, concreteLines, inlineParagraphs []string) string {
	paragraphs := findAll(body, elementNamed("p"))
	if len(paragraphs) > 0 {
		var texts []string
		for _, para := range paragraphs {
			if strings.TrimSpace(rawText(para)) == copyrightPlaceholder {
				return assemble(concreteLines, nil, "")
			}
			if isNoteNode(para) {
				continue
			}
			if text := nodeText(para); text != "" {
				texts = append(texts, text)
			}
		}
		return assemble(concreteLines, inlineParagraphs, strings.Join(texts, "\n\n"))
	}

	var listLines []string
	for _, ul := range findAll(body, elementNamed("ul")) {
		for _, li := range findAll(ul, elementNamed("li")) {
			if text := nodeText(li); text != "" {
				listLines = append(listLines, text)
			}
		}
	}
	if len(listLines) > 0 {
		return assemble(concreteLines, inlineParagraphs, strings.Join(listLines, "\n\n"))
	}

	hasFigure := findFirst(body, elementNamed("figure")) != nil
	if hasFigure && strings.TrimSpace(rawText(body)) == "" {
		return assemble(concreteLines, nil, "")
	}

	if len(inlineParagraphs) == 0 && len(concreteLines) == 0 {
		p.logger.Warn("no poetry content found in any recognized format")
	}
	return assemble(concreteLines, inlineParagraphs, "")
}

// assemble merges the three text sources in document order: concrete
// lines first, then inline paragraphs, then the main text.
func assemble(concreteLines, inlineParagraphs []string, mainText string) string {
	var parts []string
	if len(concreteLines) > 0 {
		parts = append(parts, strings.Join(concreteLines, "\n"))
	}
	parts = append(parts, inlineParagraphs...)
	if mainText != "" {
		parts = append(parts, mainText)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// authorRecord collects one <author> block's fields.
type authorRecord struct {
	lastname  string
	firstname string
	birth     string
	death     string
	period    string
}

// anonPeriod matches a year or year range standing in for a first name
// on anonymous authors, e.g. "1450" or "1500-1550".
var anonPeriod = regexp.MustCompile(`^\d{3,4}(-\d{3,4})?$`)

// extractMetadata pulls the bibliographic record from the document.
// Original authors and translators are distinguished by <role>; an
// anonymous author with a date range in the first-name slot gets the
// range moved to the period field.
func (p *Parser) extractMetadata(doc *html.Node) Metadata {
	var meta Metadata

	var orig, transl, anon *authorRecord
	for _, node := range findAll(doc, elementNamed("author")) {
		rec := &authorRecord{
			lastname:  childText(node, "lname"),
			firstname: childText(node, "fname"),
			birth:     childText(node, "dob"),
			death:     childText(node, "dod"),
		}
		if rec.lastname == "Anon." && anonPeriod.MatchString(rec.firstname) {
			rec.period = rec.firstname
			rec.firstname = ""
		}

		switch childText(node, "role") {
		case "orig.":
			orig = rec
		case "trans.":
			transl = rec
		default:
			if rec.lastname == "Anon." {
				anon = rec
			}
		}
	}

	switch {
	case anon != nil:
		meta.AuthorLastname = "Anon."
		meta.AuthorFirstname = anon.firstname
		meta.AuthorBirth = anon.birth
		meta.AuthorDeath = anon.death
		meta.AuthorPeriod = anon.period
	case orig != nil:
		meta.AuthorLastname = orig.lastname
		meta.AuthorFirstname = orig.firstname
		meta.AuthorBirth = orig.birth
		meta.AuthorDeath = orig.death
	}
	if transl != nil {
		meta.TranslLastname = transl.lastname
		meta.TranslFirstname = transl.firstname
		meta.TranslBirth = transl.birth
		meta.TranslDeath = transl.death
	}

	// The title element was renamed before parsing; see Parse.
	if title := findFirst(doc, elementNamed("tml-title")); title != nil {
		meta.TitleID = attr(title, "id")
		meta.TitleMain = childText(title, "main")
		meta.TitleSub = childText(title, "sub")
		if edition := findFirst(title, elementNamed("edition")); edition != nil {
			meta.EditionID = attr(edition, "id")
			meta.EditionText = nodeText(edition)
		}
	}

	meta.Period = nodeText(findFirst(doc, elementNamed("period")))
	meta.Genre = nodeText(findFirst(doc, elementNamed("genre")))
	meta.Rhymes = nodeText(findFirst(doc, elementNamed("rhymes")))

	return meta
}

// childText returns the clean text of the first descendant element with
// the given name, or "".
func childText(n *html.Node, name string) string {
	return nodeText(findFirst(n, elementNamed(name)))
}

// isNoteNode reports whether the node is a note or copyright block.
func isNoteNode(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if n.Data != "div" && n.Data != "p" {
		return false
	}
	return attr(n, "class") == "note" || attr(n, "type") == "note" || attr(n, "type") == "copyright"
}

// isLineType reports whether a div type marks a poem line.
func isLineType(t string) bool {
	return t == "line" || t == "firstline"
}

// elementNamed returns a predicate matching elements with the given name.
func elementNamed(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findFirst returns the first node in the subtree matching pred, in
// document order, or nil.
func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns all nodes in the subtree matching pred, in document
// order.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var result []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if pred(n) {
			result = append(result, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return result
}

// ancestor returns the nearest ancestor matching pred, or nil.
func ancestor(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if pred(p) {
			return p
		}
	}
	return nil
}

// detach removes a node from its parent.
func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// baseName returns the final path element.
func baseName(path string) string {
	return filepath.Base(path)
}
