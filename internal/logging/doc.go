// Package logging assembles the slog loggers used across posekit.
//
// It owns the console and JSON handlers, fans records out to the terminal
// and the optional log file, applies per-component level overrides, and
// provides the WarnWithContext/ErrorWithContext helpers that keep warnings
// actionable (event type, hint, impact). A no-op logger is available for
// tests and wiring code that must not fail.
package logging
