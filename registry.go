package herdcache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry coalesces concurrent fetches of the same "<name>:<key>" onto one
// call. All caches of a process must share one Registry for deduplication to
// hold; New uses DefaultRegistry unless Options.Registry is set.
type Registry struct {
	g singleflight.Group

	mu   sync.Mutex
	live map[string]*flightRef // keys with at least one caller inside Do
}

type flightRef struct{ n int }

func NewRegistry() *Registry {
	return &Registry{live: make(map[string]*flightRef)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry { return defaultRegistry }

// Do runs fn once per key among concurrent callers and hands every caller
// the same result. fn runs on a context detached from the caller's
// cancellation since other callers may be waiting on it; a caller whose ctx
// ends stops waiting and gets ctx.Err() while the fetch carries on.
// shared reports whether the result went to more than one caller.
func (r *Registry) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (v any, shared bool, err error) {
	ref := r.enter(key)
	defer r.leave(key, ref)

	fctx := context.WithoutCancel(ctx)
	ch := r.g.DoChan(key, func() (v any, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%w: %v", ErrFetchPanic, p)
			}
		}()
		return fn(fctx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Forget drops key so the next Do starts a new call. A call already running
// is not cancelled; its current waiters still get its result.
func (r *Registry) Forget(key string) {
	r.mu.Lock()
	delete(r.live, key)
	r.g.Forget(key)
	r.mu.Unlock()
}

// ForgetPrefix forgets every live key starting with prefix and returns how
// many there were.
func (r *Registry) ForgetPrefix(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.live {
		if strings.HasPrefix(k, prefix) {
			delete(r.live, k)
			r.g.Forget(k)
			n++
		}
	}
	return n
}

// Active counts live keys starting with prefix.
func (r *Registry) Active(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.live {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n
}

func (r *Registry) enter(key string) *flightRef {
	r.mu.Lock()
	ref, ok := r.live[key]
	if !ok {
		ref = &flightRef{}
		r.live[key] = ref
	}
	ref.n++
	r.mu.Unlock()
	return ref
}

func (r *Registry) leave(key string, ref *flightRef) {
	r.mu.Lock()
	ref.n--
	if ref.n == 0 && r.live[key] == ref {
		delete(r.live, key)
	}
	r.mu.Unlock()
}

// waiting reports callers currently inside Do for key.
func (r *Registry) waiting(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref, ok := r.live[key]; ok {
		return ref.n
	}
	return 0
}
