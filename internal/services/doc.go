// Package services defines shared utilities consumed by the pipeline passes
// and provider clients.
//
// Key responsibilities:
//   - Context helpers that stamp run ids, pass names, and show ids for logging.
//   - Structured error markers plus the Wrap helper so passes can tell a
//     skipped title from a command-ending failure.
//   - Context-aware sleeping for provider pacing.
package services
