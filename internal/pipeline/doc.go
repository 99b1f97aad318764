// Package pipeline sequences the enrichment passes.
//
// A Runner executes the passes a Mode names in a fixed order under a
// cross-process file lock, tagging every log record with a run id. Budget
// exhaustion and ordinary pass failures are recorded and the run moves on to
// the next pass; configuration errors and cancellation abort the run.
// Scheduler drives the daily mode from a cron expression.
//
// NewComponents builds every pass from configuration. Provider passes whose
// API key is unset are reported as skipped rather than failed.
package pipeline
