// Package directurl fills deep links for featured titles from quota-limited
// providers.
//
// One Enricher drives any Source. Every provider call is gated on the
// source's budget windows so a run stops before a window's limit is crossed.
// After each title the enrich status is re-derived from the stored
// availability rows.
package directurl
