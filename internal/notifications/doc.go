// Package notifications delivers pipeline events via ntfy.
//
// NewService returns a noop implementation when no topic is configured, so
// callers publish unconditionally. Progress events (run started, pass
// completed) are accepted but not delivered; run summaries, budget
// exhaustion, unresolved seed titles, and errors are.
package notifications
