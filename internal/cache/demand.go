package cache

import (
	"context"
	"sync"

	"github.com/carepoint/engine/internal/shared/types"
)

// DemandFetch loads one sub-resource collection, e.g. a patient's vitals
type DemandFetch[V any] func(ctx context.Context, key types.ID) (V, error)

// Demand caches sub-resources fetched on first use and kept until
// invalidated, keyed by owning entity id. Values are treated as immutable:
// writers install a replacement, never mutate in place, so snapshots can
// share them.
//
// Demand implements Target, so a mutation can include it in its store list
// and have optimistic writes rolled back like any other cache.
type Demand[V any] struct {
	name  string
	fetch DemandFetch[V]

	mu    sync.Mutex
	items map[types.ID]V

	inflightMu     sync.Mutex
	inflightCancel context.CancelFunc
}

// NewDemand creates a demand-fetched cache
func NewDemand[V any](name string, fetch DemandFetch[V]) *Demand[V] {
	return &Demand[V]{
		name:  name,
		fetch: fetch,
		items: make(map[types.ID]V),
	}
}

// Name returns the sub-resource label, e.g. "vitals"
func (d *Demand[V]) Name() string {
	return d.name
}

// Get returns the cached value, fetching on a miss
func (d *Demand[V]) Get(ctx context.Context, key types.ID) (V, error) {
	d.mu.Lock()
	if v, ok := d.items[key]; ok {
		d.mu.Unlock()
		return v, nil
	}
	d.mu.Unlock()

	v, err := d.fetch(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}
	d.mu.Lock()
	d.items[key] = v
	d.mu.Unlock()
	return v, nil
}

// Peek returns the cached value without fetching
func (d *Demand[V]) Peek(key types.ID) (V, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.items[key]
	return v, ok
}

// Put installs a value, replacing any cached one
func (d *Demand[V]) Put(key types.ID, v V) {
	d.mu.Lock()
	d.items[key] = v
	d.mu.Unlock()
}

// Invalidate drops one key so the next Get refetches
func (d *Demand[V]) Invalidate(key types.ID) {
	d.mu.Lock()
	delete(d.items, key)
	d.mu.Unlock()
}

// MarkStale drops every cached value. Implements Target; a mutation that
// touched a sub-resource forces a refetch on next access.
func (d *Demand[V]) MarkStale(ctx context.Context) {
	d.mu.Lock()
	d.items = make(map[types.ID]V)
	d.mu.Unlock()
}

func (d *Demand[V]) snapshotState() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := make(map[types.ID]V, len(d.items))
	for k, v := range d.items {
		snap[k] = v
	}
	return snap
}

func (d *Demand[V]) restoreState(ctx context.Context, state any) {
	snap := state.(map[types.ID]V)
	d.mu.Lock()
	d.items = make(map[types.ID]V, len(snap))
	for k, v := range snap {
		d.items[k] = v
	}
	d.mu.Unlock()
}

func (d *Demand[V]) cancelInflight() {
	d.inflightMu.Lock()
	if d.inflightCancel != nil {
		d.inflightCancel()
		d.inflightCancel = nil
	}
	d.inflightMu.Unlock()
}
