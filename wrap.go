package herdcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/unkn0wn-root/herdcache/internal/util"
)

// Wrap memoizes fn through c. key maps the argument to a cache key; see
// HashKey for arguments without a natural one. Entries written through the
// wrapper use ttl; ttl <= 0 keeps the cache TTL.
//
//	listPage := herdcache.Wrap(feed, 30*time.Second, func(p int) string { return herdcache.HashKey("page", p) }, db.ListPage)
//	items, err := listPage(ctx, 2)
func Wrap[A, V any](c Cache[V], ttl time.Duration, key func(A) string, fn func(context.Context, A) (V, error)) func(context.Context, A) (V, error) {
	return func(ctx context.Context, arg A) (V, error) {
		return c.GetWithTTL(ctx, key(arg), ttl, func(ctx context.Context) (V, error) {
			return fn(ctx, arg)
		})
	}
}

// HashKey returns "<prefix>:<hash>" where hash is a short sha256 of the
// JSON form of args. Values that JSON cannot encode fall back to %v.
func HashKey(prefix string, args ...any) string {
	b, err := json.Marshal(args)
	if err != nil {
		b = []byte(fmt.Sprint(args...))
	}
	return prefix + ":" + util.ShortHash(string(b))
}
