// Package catalog persists the enrichment catalog in SQLite.
//
// The store owns five tables: shows (identity plus descriptive metadata),
// services (platform reference data), streaming_availability (one row per
// show, service, and access type), featured_shows (curation state and
// direct-link status), and api_quota_log (one row per provider call).
//
// Every write is an idempotent upsert. Merges use COALESCE so a provider
// that returns less data never erases what another provider stored. Reads
// that back the enrichment passes return bounded worklists ordered by
// curation priority.
package catalog
