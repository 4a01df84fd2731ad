package herdcache

import (
	"errors"
	"time"

	"github.com/unkn0wn-root/herdcache/codec"
	"github.com/unkn0wn-root/herdcache/internal/wire"
)

// Stamp is the timing metadata stored with every entry.
type Stamp struct {
	CachedAt           time.Time     // set once when the entry is written
	TTL                time.Duration // this entry's TTL, not the cache default
	LastRefreshAttempt time.Time     // zero => never attempted
}

// Entry is a decoded cache entry. A refresh always writes a new Entry; an
// existing one is never updated in place in the provider.
type Entry[V any] struct {
	Value V
	Stamp
}

// Expired reports whether the entry outlived its own TTL. This is the
// authoritative check; provider-side TTLs are only a backup.
func (s Stamp) Expired(now time.Time) bool {
	return now.Sub(s.CachedAt) > s.TTL
}

func newStamp(now time.Time, ttl time.Duration) Stamp {
	return Stamp{CachedAt: time.UnixMilli(now.UnixMilli()), TTL: ttl}
}

func (s Stamp) header() wire.Header {
	h := wire.Header{
		CachedAtMs: s.CachedAt.UnixMilli(),
		TTLMs:      s.TTL.Milliseconds(),
	}
	if !s.LastRefreshAttempt.IsZero() {
		h.LastAttemptMs = s.LastRefreshAttempt.UnixMilli()
	}
	return h
}

func stampFromHeader(h wire.Header) Stamp {
	s := Stamp{
		CachedAt: time.UnixMilli(h.CachedAtMs),
		TTL:      time.Duration(h.TTLMs) * time.Millisecond,
	}
	if h.LastAttemptMs != 0 {
		s.LastRefreshAttempt = time.UnixMilli(h.LastAttemptMs)
	}
	return s
}

const (
	reasonCorrupt     = "corrupt"
	reasonValueDecode = "value_decode"
	reasonTooLarge    = "too_large"
)

func tooLarge(err error) bool { return errors.Is(err, codec.ErrTooLarge) }

func (c *cache[V]) encodeEntry(e Entry[V]) ([]byte, error) {
	payload, err := c.codec.Encode(e.Value)
	if err != nil {
		return nil, err
	}
	return wire.EncodeEntry(e.Stamp.header(), payload), nil
}

// decodeEntry never fails loudly: anything that is not a well-formed entry
// of V is reported through hooks and read as a miss.
func (c *cache[V]) decodeEntry(storageKey string, raw []byte) (Entry[V], bool) {
	var e Entry[V]
	h, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		c.hooks.DecodeMiss(storageKey, reasonCorrupt)
		return e, false
	}
	v, err := c.codec.Decode(payload)
	if err != nil {
		c.hooks.DecodeMiss(storageKey, reasonValueDecode)
		return e, false
	}
	e.Value = v
	e.Stamp = stampFromHeader(h)
	return e, true
}
