// Package herdcache implements a stampede-protected, provider-agnostic cache.
// A hot key that is about to expire is refreshed in the background by a
// small, random share of its readers, while concurrent readers of a missing
// or expired key share one fetch instead of each hitting the origin.
//
// Components:
//   - Provider: byte store with TTL (memory, Redis, Ristretto, BigCache).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - Entry framing: each stored value carries cachedAt, its own TTL and the
//     last refresh attempt. Foreign or legacy payloads read as misses.
//   - Policy: early-expiration window, refresh probability and the minimum
//     interval between refresh attempts of one key.
//   - Registry: process-wide in-flight table keyed "<name>:<key>".
//   - GenStore (optional): write guard so a fetch racing a Delete cannot
//     write its value back.
//
// Read path:
//
//	v, err := feed.Get(ctx, "page:1", func(ctx context.Context) (Page, error) {
//	    return db.LoadPage(ctx, 1)
//	})
//
// Fresh entries are served as-is. Inside the early window a reader may also
// dispatch a detached refresh; it still gets the cached value immediately.
// Missing or expired entries block until the shared fetch finishes.
//
// Keys:
//
//	herd:<name>:<key>  - provider keyspace owned by a cache
package herdcache
