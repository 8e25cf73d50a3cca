// Package log provides logging functionality for poemeval, built on top
// of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic truncation of oversized text attributes (excerpt bodies,
//     page transcriptions) so logs stay readable
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Truncation
//
// Evaluation and corpus-parsing code often logs attributes that carry
// literary text: excerpt bodies, whole-page transcriptions, poem titles.
// The TruncateHandler caps string attribute values at a fixed length and
// appends an ellipsis marker, so a single debug line never dumps a page
// of poetry into the log stream.
//
// # Usage
//
//	// Create a logger writing human-readable output
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Debug("parsed excerpt",
//	    "excerpt_id", "p@389:678",
//	    "text", longPoemText, // truncated to MaxAttrLen runes
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
