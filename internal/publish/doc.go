// Package publish renders the featured catalog for readers.
//
// Generate writes shows.json and services.json into the publish directory,
// replacing each file atomically. Server exposes the same projection over a
// small read-only HTTP API with a response cache, per-client rate limiting,
// and the Prometheus handler.
package publish
