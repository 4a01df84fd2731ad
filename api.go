package herdcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/herdcache/codec"
	gen "github.com/unkn0wn-root/herdcache/genstore"
	pr "github.com/unkn0wn-root/herdcache/provider"
)

// Fetcher loads a fresh value from the origin.
type Fetcher[V any] func(ctx context.Context) (V, error)

type SetCostFunc func(storageKey string, raw []byte) int64

// Cache is a named, stampede-protected cache of V values.
type Cache[V any] interface {
	Name() string
	Enabled() bool
	Close(context.Context) error

	// Get serves the cached value, possibly dispatching a background
	// refresh, or blocks on a shared fetch when the entry is missing or
	// expired. Only cold-path failures are returned.
	Get(ctx context.Context, key string, fetch Fetcher[V]) (V, error)
	// GetWithTTL is Get whose fetched entries, cold or refreshed, are
	// written with ttl instead of the cache TTL. ttl <= 0 is Get.
	GetWithTTL(ctx context.Context, key string, ttl time.Duration, fetch Fetcher[V]) (V, error)
	// GetRaw reads without any refresh logic.
	GetRaw(ctx context.Context, key string) (v V, ok bool, err error)
	// Set writes a new entry; ttl <= 0 uses the cache TTL.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix drops the entries whose key starts with keyPrefix.
	DeletePrefix(ctx context.Context, keyPrefix string) error
	Clear(ctx context.Context) error

	Stats() Stats
}

// Stats is a read-only snapshot for dashboards.
type Stats struct {
	Name               string
	TTL                time.Duration
	Policy             Policy
	ActiveRefreshCount int // live in-flight fetches under this cache's name

	Hits          uint64
	Misses        uint64
	Refreshes     uint64 // background refreshes dispatched
	RefreshErrors uint64
}

// HitRate returns hits/(hits+misses) in [0,1], or 0 before any read.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Options tune a named cache.
// Only Name, Provider and Codec are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Name     string // logical dataset name, e.g. "feed"; no ':' or glob characters
	Provider pr.Provider
	Codec    c.Codec[V]

	TTL            time.Duration // default entry TTL; 0 => 5m
	Policy         Policy        // zero value => DefaultPolicy()
	RefreshTimeout time.Duration // bound for background refreshes; 0 => 30s
	FetchTimeout   time.Duration // bound for cold fetches; 0 => none

	Logger         Logger         // if nil, NopLogger is used
	Hooks          Hooks          // if nil, NopHooks is used
	Clock          Clock          // if nil, wall clock
	Rand           func() float64 // uniform [0,1); nil => math/rand/v2
	Registry       *Registry      // nil => DefaultRegistry()
	GenStore       gen.GenStore   // nil => no write guard (last write wins)
	ComputeSetCost SetCostFunc    // default 1
	Disabled       bool           // Get calls fetch directly; writes are no-ops
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
