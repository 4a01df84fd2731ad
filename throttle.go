package herdcache

import (
	"strings"
	"sync"
	"time"
)

const throttleSweepAt = 4096

// throttle remembers the last refresh attempt per key inside this process.
// Decoded entries are copies, so stamping LastRefreshAttempt on one does not
// reach the next reader; claim is what keeps two readers a millisecond apart
// from both dispatching.
type throttle struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func newThrottle() *throttle {
	return &throttle{last: make(map[string]time.Time)}
}

func (t *throttle) lastAttempt(key string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last[key]
}

// claim records an attempt at now unless one happened less than interval ago.
func (t *throttle) claim(key string, now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.last[key]; ok && now.Sub(prev) < interval {
		return false
	}
	if len(t.last) >= throttleSweepAt {
		for k, at := range t.last {
			if now.Sub(at) >= interval {
				delete(t.last, k)
			}
		}
	}
	t.last[key] = now
	return true
}

func (t *throttle) forget(key string) {
	t.mu.Lock()
	delete(t.last, key)
	t.mu.Unlock()
}

func (t *throttle) forgetPrefix(prefix string) {
	t.mu.Lock()
	for k := range t.last {
		if strings.HasPrefix(k, prefix) {
			delete(t.last, k)
		}
	}
	t.mu.Unlock()
}

func (t *throttle) reset() {
	t.mu.Lock()
	t.last = make(map[string]time.Time)
	t.mu.Unlock()
}
