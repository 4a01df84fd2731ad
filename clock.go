package herdcache

import "time"

// Clock provides the current time. Tests inject a fake to move entries
// through their TTL without sleeping.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
