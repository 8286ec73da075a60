// Package rest is the typed client for the exchange REST API, reached
// through the caching gateway. Raw responses tolerate the shape variants
// the upstream is known to emit; mapping to domain types lives in
// internal/mapper.
package rest
