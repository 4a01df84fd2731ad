// Package asynchook moves herdcache hook calls off the hot path onto a
// bounded worker queue. Events are dropped when the queue is full.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{DecodeMissEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	feed, _ := herdcache.New[Page](herdcache.Options[Page]{
//	    Name:     "feed",
//	    Provider: provider,
//	    Codec:    codec.JSON[Page]{},
//	    Hooks:    hooks,
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/herdcache"
)

type Hooks struct {
	inner   herdcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

var _ herdcache.Hooks = (*Hooks)(nil)

func New(inner herdcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events raised after
// Close must not happen; stop the cache first.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped reports events discarded because the queue was full.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) RefreshTriggered(k string)       { h.try(func() { h.inner.RefreshTriggered(k) }) }
func (h *Hooks) RefreshFailed(k string, e error) { h.try(func() { h.inner.RefreshFailed(k, e) }) }
func (h *Hooks) DecodeMiss(k, r string)          { h.try(func() { h.inner.DecodeMiss(k, r) }) }
func (h *Hooks) Coalesced(k string)              { h.try(func() { h.inner.Coalesced(k) }) }
func (h *Hooks) ProviderSetRejected(k string)    { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) WriteSkipped(k, r string)        { h.try(func() { h.inner.WriteSkipped(k, r) }) }
