// Package seed imports the curated featured list from CSV files.
//
// Each row is resolved to a TMDB id through a fallback chain: an explicit
// tmdbId column, an IMDb cross-reference lookup guarded by a title overlap
// check, a title and year search, and finally a title-only search. Resolved
// rows are inserted (or flagged) as featured titles awaiting direct links.
package seed
