// Package motn is a client for the Movie of the Night Streaming Availability
// API as served through RapidAPI. Prices are decoded with shopspring/decimal.
package motn
