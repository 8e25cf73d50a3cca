// Package database provides SQLite-based storage for poemeval.
//
// This package implements the RunDB, which stores:
//   - Evaluation runs with their configuration and macro scores
//   - Per-page results for cross-run comparison queries
//   - Full reports as JSON for lossless retrieval
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// Per-page results are stored relationally in addition to the JSON blob so
// that run comparisons can be expressed as a SQL join on page_id instead
// of deserializing whole reports.
package database
