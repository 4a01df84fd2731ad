package herdcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A reader inside the early window dispatched a background refresh.
	RefreshTriggered(storageKey string)

	// A background refresh failed; the stale entry stays authoritative.
	RefreshFailed(storageKey string, err error)

	// A stored payload could not be decoded and was read as a miss.
	// reason ∈ {"corrupt", "value_decode"}
	DecodeMiss(storageKey, reason string)

	// A fetch result was delivered to more than one caller.
	Coalesced(storageKey string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// The write guard dropped a fetched value instead of storing it.
	// reason ∈ {"gen_mismatch", "snapshot_error", "too_large"}
	WriteSkipped(storageKey, reason string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) RefreshTriggered(string)     {}
func (NopHooks) RefreshFailed(string, error) {}
func (NopHooks) DecodeMiss(string, string)   {}
func (NopHooks) Coalesced(string)            {}
func (NopHooks) ProviderSetRejected(string)  {}
func (NopHooks) WriteSkipped(string, string) {}
