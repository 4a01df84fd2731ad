package herdcache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	c "github.com/unkn0wn-root/herdcache/codec"
	gen "github.com/unkn0wn-root/herdcache/genstore"
	"github.com/unkn0wn-root/herdcache/internal/util"
	pr "github.com/unkn0wn-root/herdcache/provider"
)

type cache[V any] struct {
	name          string
	storagePrefix string
	flightPrefix  string

	provider pr.Provider
	codec    c.Codec[V]
	log      Logger
	hooks    Hooks
	clock    Clock
	draw     func() float64

	enabled        bool
	ttl            time.Duration
	policy         Policy
	refreshTimeout time.Duration
	fetchTimeout   time.Duration
	computeSetCost SetCostFunc

	reg      *Registry
	throttle *throttle
	guard    *guard // nil => last write wins
	gs       gen.GenStore

	bgMu      sync.Mutex
	closed    bool // no refresh is dispatched once set
	bg        sync.WaitGroup
	closeOnce sync.Once

	hits          atomic.Uint64
	misses        atomic.Uint64
	refreshes     atomic.Uint64
	refreshErrors atomic.Uint64
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Provider == nil {
		return nil, ErrNilProvider
	}
	if opts.Codec == nil {
		return nil, ErrNilCodec
	}
	if opts.Name == "" {
		return nil, ErrEmptyName
	}
	if !util.ValidName(opts.Name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, opts.Name)
	}

	policy := coalesce[Policy](opts.Policy, DefaultPolicy())
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	c := &cache[V]{
		name:          opts.Name,
		storagePrefix: util.StoragePrefix(opts.Name),
		flightPrefix:  util.FlightPrefix(opts.Name),
		provider:      opts.Provider,
		codec:         opts.Codec,
		enabled:       !opts.Disabled,
		policy:        policy,
		fetchTimeout:  opts.FetchTimeout,
		throttle:      newThrottle(),
		gs:            opts.GenStore,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.clock = coalesce[Clock](opts.Clock, realClock{})
	c.ttl = coalesce[time.Duration](opts.TTL, defaultTTL)
	c.refreshTimeout = coalesce[time.Duration](opts.RefreshTimeout, defaultRefreshTimeout)

	if opts.Rand != nil {
		c.draw = opts.Rand
	} else {
		c.draw = rand.Float64
	}
	if opts.Registry != nil {
		c.reg = opts.Registry
	} else {
		c.reg = DefaultRegistry()
	}
	if opts.ComputeSetCost != nil {
		c.computeSetCost = opts.ComputeSetCost
	} else {
		c.computeSetCost = func(string, []byte) int64 { return 1 }
	}
	c.guard = newGuard(opts.GenStore, c.storagePrefix)

	return c, nil
}

func (c *cache[V]) Name() string  { return c.name }
func (c *cache[V]) Enabled() bool { return c.enabled }

// Close stops dispatching background refreshes, waits for the ones already
// running (bounded by ctx), then closes the GenStore and the Provider.
func (c *cache[V]) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.bgMu.Lock()
		c.closed = true
		c.bgMu.Unlock()

		done := make(chan struct{})
		go func() {
			c.bg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
			c.log.Warn("close: background refreshes still running", Fields{"cache": c.name})
		}
		if c.gs != nil {
			_ = c.gs.Close(ctx)
		}
		if cerr := c.provider.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

func (c *cache[V]) Get(ctx context.Context, key string, fetch Fetcher[V]) (V, error) {
	return c.GetWithTTL(ctx, key, 0, fetch)
}

func (c *cache[V]) GetWithTTL(ctx context.Context, key string, ttl time.Duration, fetch Fetcher[V]) (V, error) {
	var zero V
	if fetch == nil {
		return zero, ErrNilFetcher
	}
	if !c.enabled {
		return fetch(ctx)
	}

	if ttl <= 0 {
		ttl = c.ttl
	}

	k := c.storageKey(key)
	raw, ok, err := c.provider.Get(ctx, k)
	if err != nil {
		return zero, fmt.Errorf("herdcache: get %q: %w", key, err)
	}
	if !ok {
		c.misses.Add(1)
		return c.load(ctx, key, fetch, ttl, c.fetchTimeout)
	}

	e, ok := c.decodeEntry(k, raw)
	now := c.clock.Now()
	if !ok || e.Expired(now) {
		c.misses.Add(1)
		return c.load(ctx, key, fetch, ttl, c.fetchTimeout)
	}

	switch c.decide(key, &e, now) {
	case Refetch:
		c.misses.Add(1)
		return c.load(ctx, key, fetch, ttl, c.fetchTimeout)
	case ServeAndRefresh:
		c.refreshAsync(key, fetch, ttl)
	}
	c.hits.Add(1)
	return e.Value, nil
}

// decide runs the policy against the entry, folding in this process's own
// record of the last attempt, and claims the throttle slot before a refresh
// is allowed to go out. The attempt is stamped on the decoded copy only; the
// stored entry is never rewritten, so MinRefreshInterval is enforced per
// process.
func (c *cache[V]) decide(key string, e *Entry[V], now time.Time) Decision {
	if last := c.throttle.lastAttempt(key); last.After(e.LastRefreshAttempt) {
		e.LastRefreshAttempt = last
	}
	d := c.policy.Decide(e.Stamp, now, c.draw)
	if d != ServeAndRefresh {
		return d
	}
	if !c.throttle.claim(key, now, c.policy.MinRefreshInterval) {
		return Serve
	}
	e.LastRefreshAttempt = now
	return ServeAndRefresh
}

// refreshAsync dispatches a detached refresh through the shared registry.
// Its errors end here. Nothing is dispatched after Close.
func (c *cache[V]) refreshAsync(key string, fetch Fetcher[V], ttl time.Duration) {
	c.bgMu.Lock()
	if c.closed {
		c.bgMu.Unlock()
		return
	}
	c.bg.Add(1)
	c.bgMu.Unlock()

	k := c.storageKey(key)
	c.refreshes.Add(1)
	c.hooks.RefreshTriggered(k)

	go func() {
		defer c.bg.Done()
		if _, err := c.load(context.Background(), key, fetch, ttl, c.refreshTimeout); err != nil {
			c.refreshErrors.Add(1)
			rerr := &RefreshError{Key: key, Err: err}
			c.log.Warn("background refresh failed; serving stale entry", Fields{
				"cache": c.name,
				"key":   key,
				"err":   err,
			})
			c.hooks.RefreshFailed(k, rerr)
		}
	}()
}

// load is the cold path: one fetch per "<name>:<key>" at a time, shared by
// every caller that arrives while it runs. The flight keeps the timeout of
// the caller that started it; a caller joining it still stops waiting after
// its own timeout.
func (c *cache[V]) load(ctx context.Context, key string, fetch Fetcher[V], ttl, timeout time.Duration) (V, error) {
	var zero V
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	k := c.storageKey(key)
	v, shared, err := c.reg.Do(ctx, c.flightPrefix+key, func(fctx context.Context) (any, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, timeout)
			defer cancel()
		}
		fv, ferr := c.fetchAndStore(fctx, key, fetch, ttl)
		return fv, ferr
	})
	if shared {
		c.hooks.Coalesced(k)
	}
	if err != nil {
		return zero, err
	}
	out, ok := v.(V)
	if !ok {
		return zero, fmt.Errorf("%w: cache %q got %T", ErrTypeMismatch, c.name, v)
	}
	return out, nil
}

func (c *cache[V]) fetchAndStore(ctx context.Context, key string, fetch Fetcher[V], ttl time.Duration) (V, error) {
	k := c.storageKey(key)

	var snap genSnap
	if c.guard != nil {
		s, err := c.guard.snapshot(ctx, k)
		if err != nil {
			// fetch anyway; the result is served but not stored
			c.log.Warn("gen snapshot failed", Fields{"cache": c.name, "key": key, "err": err})
		}
		snap = s
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}

	if c.guard != nil {
		okGen, gerr := c.guard.still(ctx, k, snap)
		if !okGen {
			reason := "gen_mismatch"
			if gerr != nil || !snap.ok {
				reason = "snapshot_error"
			}
			c.log.Debug("fetched value not stored", Fields{"cache": c.name, "key": key, "reason": reason})
			c.hooks.WriteSkipped(k, reason)
			return v, nil
		}
	}

	if err := c.write(ctx, k, Entry[V]{Value: v, Stamp: newStamp(c.clock.Now(), ttl)}); err != nil {
		if tooLarge(err) {
			c.log.Debug("fetched value not stored", Fields{"cache": c.name, "key": key, "reason": reasonTooLarge})
			c.hooks.WriteSkipped(k, reasonTooLarge)
			return v, nil
		}
		var zero V
		return zero, err
	}
	return v, nil
}

func (c *cache[V]) write(ctx context.Context, storageKey string, e Entry[V]) error {
	raw, err := c.encodeEntry(e)
	if err != nil {
		return fmt.Errorf("herdcache: encode %q: %w", storageKey, err)
	}
	ok, err := c.provider.Set(ctx, storageKey, raw, c.computeSetCost(storageKey, raw), e.TTL)
	if err != nil {
		return fmt.Errorf("herdcache: set %q: %w", storageKey, err)
	}
	if !ok {
		c.log.Debug("set rejected by provider (pressure)", Fields{"key": storageKey})
		c.hooks.ProviderSetRejected(storageKey)
	}
	return nil
}

func (c *cache[V]) GetRaw(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if !c.enabled {
		return zero, false, nil
	}
	k := c.storageKey(key)
	raw, ok, err := c.provider.Get(ctx, k)
	if err != nil {
		return zero, false, fmt.Errorf("herdcache: get %q: %w", key, err)
	}
	if !ok {
		return zero, false, nil
	}
	e, ok := c.decodeEntry(k, raw)
	if !ok || e.Expired(c.clock.Now()) {
		return zero, false, nil
	}
	return e.Value, true, nil
}

func (c *cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if !c.enabled {
		return nil
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	return c.write(ctx, c.storageKey(key), Entry[V]{Value: value, Stamp: newStamp(c.clock.Now(), ttl)})
}

// Delete removes the entry and drops in-flight bookkeeping so the next Get
// starts its own fetch. A fetch already running is not cancelled and, without
// a GenStore, may still write its result afterwards.
func (c *cache[V]) Delete(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}
	k := c.storageKey(key)

	var bumpErr error
	if c.guard != nil {
		bumpErr = c.guard.bump(ctx, k)
	}
	delErr := c.provider.Del(ctx, k)

	c.reg.Forget(c.flightPrefix + key)
	c.throttle.forget(key)

	if bumpErr != nil || delErr != nil {
		c.log.Error("delete failed", Fields{"cache": c.name, "key": key, "bumpErr": bumpErr, "delErr": delErr})
		return &DeleteError{Key: key, BumpErr: bumpErr, DelErr: delErr}
	}
	c.log.Debug("deleted key", Fields{"cache": c.name, "key": key})
	return nil
}

// Clear removes every entry of this cache and forgets its in-flight fetches.
func (c *cache[V]) Clear(ctx context.Context) error {
	return c.DeletePrefix(ctx, "")
}

// DeletePrefix removes the entries whose key starts with keyPrefix and
// forgets their in-flight fetches. With a GenStore the epoch bump drops
// every racing write of the cache, not only those under keyPrefix.
func (c *cache[V]) DeletePrefix(ctx context.Context, keyPrefix string) error {
	if !c.enabled {
		return nil
	}
	var errs []error
	if c.guard != nil {
		if err := c.guard.bumpEpoch(ctx); err != nil {
			errs = append(errs, fmt.Errorf("herdcache: clear %q: epoch bump: %w", c.name, err))
		}
	}
	if err := c.provider.Clear(ctx, c.storagePrefix+keyPrefix); err != nil {
		errs = append(errs, fmt.Errorf("herdcache: clear %q: %w", c.name, err))
	}

	forgotten := c.reg.ForgetPrefix(c.flightPrefix + keyPrefix)
	if keyPrefix == "" {
		c.throttle.reset()
	} else {
		c.throttle.forgetPrefix(keyPrefix)
	}

	c.log.Info("cache cleared", Fields{"cache": c.name, "keyPrefix": keyPrefix, "inflightForgotten": forgotten})
	return errors.Join(errs...)
}

func (c *cache[V]) Stats() Stats {
	return Stats{
		Name:               c.name,
		TTL:                c.ttl,
		Policy:             c.policy,
		ActiveRefreshCount: c.reg.Active(c.flightPrefix),
		Hits:               c.hits.Load(),
		Misses:             c.misses.Load(),
		Refreshes:          c.refreshes.Load(),
		RefreshErrors:      c.refreshErrors.Load(),
	}
}

func (c *cache[V]) storageKey(userKey string) string {
	return c.storagePrefix + userKey
}
