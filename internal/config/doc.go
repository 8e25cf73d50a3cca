// Package config provides configuration structures and utilities for
// poemeval. It defines the evaluation options (label handling, partial
// match weighting, concurrency), report format selection, and the optional
// YAML profile file with named evaluation presets.
package config
