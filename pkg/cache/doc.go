// Package cache implements the runtime cache layer: a set of named
// request/response caches with bounded sizes and strict FIFO eviction.
//
// Three named caches exist per deployed generation: static assets,
// dynamic content (API responses) and images. Cache names carry a shared
// prefix plus a generation suffix; superseded generations are deleted
// wholesale on activation (see the lifecycle package).
//
// # Eviction
//
// Eviction is FIFO by insertion, not LRU: a Match never refreshes an
// entry's position, while a Put on an existing key overwrites in place
// and resets it to newest. EnforceLimit deletes the oldest entry one at
// a time, re-reading the key list after each deletion, so inserts that
// race with enforcement are simply re-measured on the next pass.
//
// This is a fixed contract, deliberately simpler than LRU. Do not
// "upgrade" it.
//
// # Backends
//
// The Store interface has two implementations: MemoryStore (default,
// per-process) and RedisStore (shared). Both keep per-cache insertion
// order explicitly.
//
// # Basic Usage
//
//	manager := cache.NewManager(cache.NewMemoryStore())
//	images := manager.Open(cache.DefaultNames().Images())
//
//	entry, err := cache.ResponseToEntry(resp)
//	if err == nil {
//		_ = images.Put(ctx, cache.NewKey(req), entry)
//		_ = images.EnforceLimit(ctx, cache.ImageCacheLimit)
//	}
//
//	cached, err := images.Match(ctx, cache.NewKey(req))
//	if err == cache.ErrCacheMiss {
//		// fetch from network
//	}
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - mealkeeper_cache_hits_total{cache} - Cache hits
//   - mealkeeper_cache_misses_total{cache} - Cache misses
//   - mealkeeper_cache_evictions_total{cache} - FIFO evictions
//   - mealkeeper_cache_written_bytes_total{cache} - Bytes written
//   - mealkeeper_cache_errors_total{operation} - Operation errors
package cache
