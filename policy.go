package herdcache

import (
	"math"
	"time"
)

// Policy controls probabilistic early recomputation.
type Policy struct {
	// EarlyExpirationWindow is the fraction of TTL, counted back from
	// expiry, in which a read may trigger a background refresh. [0,1]
	EarlyExpirationWindow float64
	// RefreshProbability is the per-read chance of triggering inside the
	// window. [0,1]
	RefreshProbability float64
	// MinRefreshInterval is the minimum spacing between refresh attempts of
	// one key, whatever the draws say.
	MinRefreshInterval time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		EarlyExpirationWindow: 0.2,
		RefreshProbability:    0.1,
		MinRefreshInterval:    5 * time.Second,
	}
}

// Validate rejects fractions outside [0,1] (NaN included) and negative
// intervals.
func (p Policy) Validate() error {
	if !unitInterval(p.EarlyExpirationWindow) {
		return &PolicyError{Field: "EarlyExpirationWindow", Value: p.EarlyExpirationWindow}
	}
	if !unitInterval(p.RefreshProbability) {
		return &PolicyError{Field: "RefreshProbability", Value: p.RefreshProbability}
	}
	if p.MinRefreshInterval < 0 {
		return &PolicyError{Field: "MinRefreshInterval", Value: p.MinRefreshInterval}
	}
	return nil
}

func unitInterval(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= 1
}

// Decision is the outcome of evaluating an entry against a Policy.
type Decision int

const (
	// Serve returns the cached value without refreshing.
	Serve Decision = iota
	// ServeAndRefresh returns the cached value and refreshes in the background.
	ServeAndRefresh
	// Refetch means the entry is expired; the caller must fetch synchronously.
	Refetch
)

func (d Decision) String() string {
	switch d {
	case Serve:
		return "serve"
	case ServeAndRefresh:
		return "serve_and_refresh"
	case Refetch:
		return "refetch"
	default:
		return "unknown"
	}
}

// Decide evaluates s at now. draw must return a uniform value in [0,1) and
// is only called once the entry is inside the window and not throttled.
func (p Policy) Decide(s Stamp, now time.Time, draw func() float64) Decision {
	remaining := s.TTL - now.Sub(s.CachedAt)
	if remaining <= 0 {
		return Refetch
	}

	window := time.Duration(float64(s.TTL) * p.EarlyExpirationWindow)
	if remaining >= window {
		return Serve
	}

	if !s.LastRefreshAttempt.IsZero() && now.Sub(s.LastRefreshAttempt) < p.MinRefreshInterval {
		return Serve
	}

	if draw() < p.RefreshProbability {
		return ServeAndRefresh
	}
	return Serve
}
