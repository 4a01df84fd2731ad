// Package memory is an in-process Provider backed by a mutex-guarded map.
// It is the fallback store when no shared backend is configured.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	pr "github.com/unkn0wn-root/herdcache/provider"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// Memory keeps up to MaxEntries values; when full, the entry closest to
// expiry (entries without TTL last) is evicted to make room.
type Memory struct {
	mu  sync.RWMutex
	m   map[string]entry
	max int
	now func() time.Time
}

var _ pr.Provider = (*Memory)(nil)

type Config struct {
	MaxEntries int              // 0 = unlimited
	Now        func() time.Time // nil => time.Now
}

func New(cfg Config) *Memory {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Memory{m: make(map[string]entry), max: cfg.MaxEntries, now: now}
}

func (p *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	e, ok := p.m[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && p.now().After(e.exp) {
		p.mu.Lock()
		if cur, ok := p.m[key]; ok && cur.exp.Equal(e.exp) {
			delete(p.m, key)
		}
		p.mu.Unlock()
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *Memory) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = p.now().Add(ttl)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.m[key]; !exists && p.max > 0 && len(p.m) >= p.max {
		p.evictLocked()
	}
	p.m[key] = entry{v: value, exp: exp}
	return true, nil
}

func (p *Memory) evictLocked() {
	var (
		victim string
		best   time.Time
		found  bool
	)
	for k, e := range p.m {
		if !found || (!e.exp.IsZero() && (best.IsZero() || e.exp.Before(best))) {
			victim, best, found = k, e.exp, true
		}
	}
	if found {
		delete(p.m, victim)
	}
}

func (p *Memory) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

func (p *Memory) Clear(_ context.Context, prefix string) error {
	p.mu.Lock()
	for k := range p.m {
		if strings.HasPrefix(k, prefix) {
			delete(p.m, k)
		}
	}
	p.mu.Unlock()
	return nil
}

// Len reports the number of stored keys, expired ones included.
func (p *Memory) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

func (p *Memory) Close(_ context.Context) error { return nil }
