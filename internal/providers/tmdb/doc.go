// Package tmdb provides the TMDB API client used by seeding, metadata
// enrichment, provider presence, and the bulk importer.
//
// It covers movie and series details with appended videos, series external
// ids, /find by IMDb id, movie and series search with year filters, regional
// watch providers, and daily id export downloads. 404 maps to ErrNotFound and
// 429 to ErrRateLimited; every API attempt is reported to an optional
// quota.Recorder.
package tmdb
