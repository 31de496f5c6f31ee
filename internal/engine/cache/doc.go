// Package cache provides the bounded in-memory query-result cache with TTL
// expiration that every dashboard endpoint reads through.
//
// Keys are deterministic fingerprints built from normalized search
// parameters (see BuildKey), so semantically identical requests share one
// entry regardless of field casing, whitespace, or data-source ordering.
// Capacity eviction removes the entry closest to expiry first, keeping
// frequently reused, freshly written results alive for longer.
//
// The store guarantees data consistency under concurrent access but not
// fetch deduplication; callers that must avoid duplicate upstream fetches
// for the same key wrap misses in a single-flight group (the engine does).
package cache
