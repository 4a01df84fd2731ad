package herdcache

import "time"

// Preset is a named TTL + Policy pair tuned for one access pattern.
type Preset struct {
	Name   string
	TTL    time.Duration
	Policy Policy
}

var (
	// PresetFeed suits hot, volatile data read constantly (paginated
	// feeds): short TTL and a very low draw so refresh load stays flat.
	PresetFeed = Preset{
		Name: "feed",
		TTL:  time.Minute,
		Policy: Policy{
			EarlyExpirationWindow: 0.1,
			RefreshProbability:    0.02,
			MinRefreshInterval:    5 * time.Second,
		},
	}

	// PresetTaxonomy suits slow-changing lists (categories, tags). Refresh
	// cost is spread over many reads, so the window and draw are wider.
	PresetTaxonomy = Preset{
		Name: "taxonomy",
		TTL:  time.Hour,
		Policy: Policy{
			EarlyExpirationWindow: 0.3,
			RefreshProbability:    0.25,
			MinRefreshInterval:    30 * time.Second,
		},
	}

	PresetDefault = Preset{
		Name:   "default",
		TTL:    defaultTTL,
		Policy: DefaultPolicy(),
	}
)

var presets = map[string]Preset{
	PresetFeed.Name:     PresetFeed,
	PresetTaxonomy.Name: PresetTaxonomy,
	PresetDefault.Name:  PresetDefault,
}

// Lookup returns the built-in preset with the given name.
func Lookup(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// WithPreset copies p's TTL and Policy into opts. Name is taken from the
// preset only when opts has none.
func WithPreset[V any](opts Options[V], p Preset) Options[V] {
	if opts.Name == "" {
		opts.Name = p.Name
	}
	opts.TTL = p.TTL
	opts.Policy = p.Policy
	return opts
}

// NewFromPreset is New with a built-in preset applied by name.
func NewFromPreset[V any](preset string, opts Options[V]) (Cache[V], error) {
	p, ok := Lookup(preset)
	if !ok {
		return nil, &PolicyError{Field: "Preset", Value: preset}
	}
	return New[V](WithPreset(opts, p))
}
