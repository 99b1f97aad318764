// Package metadata fills and refreshes TMDB metadata for featured titles.
//
// The fill pass fetches every featured title that has never been fetched; the
// refresh pass revisits the oldest fetches past the staleness window. Both
// share the same per-title fetch. Series issue their details and
// external-id requests concurrently.
package metadata
