// Package config loads, normalizes, and validates streamguide configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// TMDB, Watchmode, and Movie of the Night API keys. The Config type centralizes
// every knob the pipeline passes, the read API, and the CLI need, including
// the built-in streaming service definitions that [[service]] entries extend.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, upper-cased region codes, and clear validation errors.
package config
