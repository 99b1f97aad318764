// Package textutil provides title comparison and display helpers.
//
// Seed resolution uses TitleWords and Jaccard to sanity-check IMDB lookups,
// NormalizeTitle to prefer exact search hits, and DisplayTitle to tidy titles
// typed in a single case.
package textutil
