// Package sloghooks reports herdcache events through log/slog with
// sampling and key redaction.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/herdcache"
	"github.com/unkn0wn-root/herdcache/internal/util"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	RefreshEvery    uint64
	DecodeMissEvery uint64
	CoalescedEvery  uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	refreshCtr    atomic.Uint64
	decodeMissCtr atomic.Uint64
	coalescedCtr  atomic.Uint64
}

var _ herdcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return util.ShortHash(k)
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) RefreshTriggered(storageKey string) {
	if h.l == nil || !sample(h.opts.RefreshEvery, &h.refreshCtr) {
		return
	}
	h.l.Debug("herdcache.refresh_triggered", "key", h.redact(storageKey))
}

func (h *Hooks) RefreshFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("herdcache.refresh_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) DecodeMiss(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.DecodeMissEvery, &h.decodeMissCtr) {
		return
	}
	h.l.Info("herdcache.decode_miss",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) Coalesced(storageKey string) {
	if h.l == nil || !sample(h.opts.CoalescedEvery, &h.coalescedCtr) {
		return
	}
	h.l.Debug("herdcache.coalesced", "key", h.redact(storageKey))
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("herdcache.provider_set_rejected", "key", h.redact(storageKey))
}

func (h *Hooks) WriteSkipped(storageKey, reason string) {
	if h.l == nil {
		return
	}
	h.l.Info("herdcache.write_skipped",
		"key", h.redact(storageKey),
		"reason", reason)
}
