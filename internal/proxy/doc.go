// Package proxy implements the caching gateway in front of the upstream
// REST API.
//
// The gateway:
//   - Validates requested upstream paths before any network call
//   - Applies per-route TTL caching with an injected clock and TTL policy
//   - Deduplicates concurrent identical requests (at most one upstream
//     call in flight per cache key)
//   - Annotates every response with HIT / MISS / DEDUPED cache status
package proxy
