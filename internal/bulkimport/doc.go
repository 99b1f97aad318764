// Package bulkimport loads TMDB's daily id exports into the catalog.
//
// Each export is a gzipped newline-delimited JSON file listing every movie or
// series id with its original title. Rows are inserted as minimal, unfeatured
// shows in fixed-size batches, one transaction per batch, so a rerun only
// adds ids that appeared since the last import.
package bulkimport
