// Package logging assembles structured slog loggers and formatting helpers used
// across streamguide.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// rotating log file under the configured log directory. Context-aware helpers
// tag records with the pipeline run id, pass name, and show id so a single run
// can be followed across passes. A no-op logger is provided for tests.
package logging
