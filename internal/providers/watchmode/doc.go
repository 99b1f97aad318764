// Package watchmode is a small client for the Watchmode v1 API: title
// details with regional sources, keyed by Watchmode id or TMDB id, and name
// search.
package watchmode
