// Package main provides the entry point for the poemeval CLI.
//
// poemeval scores poetry span detection against reference annotations
// and manages the surrounding workflow: merging annotation rounds,
// converting the Chadwyck-Healey corpus, and comparing stored runs.
//
// Usage:
//
//	poemeval evaluate <reference.jsonl> <system.jsonl>
//	poemeval compare <run-id> <run-id>
//
// See --help for all available options.
package main

// main is the entry point for poemeval.
func main() {
	Execute()
}
