package herdcache

import (
	"context"

	gen "github.com/unkn0wn-root/herdcache/genstore"
)

// guard is the optional write guard over a GenStore. A snapshot taken
// before a fetch must still match at write time; Delete bumps the key and
// Clear bumps the cache-wide epoch.
type guard struct {
	gs       gen.GenStore
	epochKey string
}

type genSnap struct {
	epoch, gen uint64
	ok         bool
}

func newGuard(gs gen.GenStore, storagePrefix string) *guard {
	if gs == nil {
		return nil
	}
	return &guard{gs: gs, epochKey: "epoch:" + storagePrefix}
}

func (g *guard) snapshot(ctx context.Context, storageKey string) (genSnap, error) {
	m, err := g.gs.SnapshotMany(ctx, []string{g.epochKey, storageKey})
	if err != nil {
		return genSnap{}, err
	}
	return genSnap{epoch: m[g.epochKey], gen: m[storageKey], ok: true}, nil
}

// still reports whether no Delete or Clear happened since s was taken.
func (g *guard) still(ctx context.Context, storageKey string, s genSnap) (bool, error) {
	if !s.ok {
		return false, nil
	}
	cur, err := g.snapshot(ctx, storageKey)
	if err != nil {
		return false, err
	}
	return cur.epoch == s.epoch && cur.gen == s.gen, nil
}

func (g *guard) bump(ctx context.Context, storageKey string) error {
	_, err := g.gs.Bump(ctx, storageKey)
	return err
}

func (g *guard) bumpEpoch(ctx context.Context) error {
	_, err := g.gs.Bump(ctx, g.epochKey)
	return err
}
