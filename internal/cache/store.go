package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/carepoint/engine/internal/shared/events"
	"github.com/carepoint/engine/internal/shared/metrics"
	"github.com/carepoint/engine/internal/shared/types"
)

// Entity is anything the cache can hold: identifiable and deep-copyable.
// Clone must copy every nested pointer and slice so a snapshot shares no
// memory with the live collection.
type Entity[T any] interface {
	EntityID() types.ID
	Clone() T
}

// Store holds the last server-confirmed collection for one entity type,
// keyed by id. All writes go through the mutation coordinator or the
// poller; no other component writes here directly.
type Store[T Entity[T]] struct {
	name string
	bus  *events.Bus

	mu    sync.RWMutex
	items map[types.ID]T
	stale bool
	// version counts every write, so views can cheaply detect change.
	version uint64

	inflightMu     sync.Mutex
	inflightCancel context.CancelFunc
}

// NewStore creates an empty store for the named entity type
func NewStore[T Entity[T]](name string, bus *events.Bus) *Store[T] {
	return &Store[T]{
		name:  name,
		bus:   bus,
		items: make(map[types.ID]T),
	}
}

// Name returns the entity type label, e.g. "alerts"
func (s *Store[T]) Name() string {
	return s.name
}

// ReplaceAll installs a server-confirmed collection, clearing staleness
func (s *Store[T]) ReplaceAll(ctx context.Context, items []T) {
	s.mu.Lock()
	s.items = make(map[types.ID]T, len(items))
	for _, it := range items {
		s.items[it.EntityID()] = it.Clone()
	}
	s.stale = false
	s.version++
	n := len(s.items)
	s.mu.Unlock()

	metrics.SetCacheSize(s.name, n)
	s.publish(ctx, "updated")
}

// Get returns a copy of the entity, if cached
func (s *Store[T]) Get(id types.ID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return it.Clone(), true
}

// List returns copies of all cached entities in stable id order
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EntityID() < out[j].EntityID()
	})
	return out
}

// Version returns the monotonic write counter
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Stale reports whether the store is marked for reconciliation
func (s *Store[T]) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// MarkStale flags the store so the next poll or read refetches
func (s *Store[T]) MarkStale(ctx context.Context) {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
	s.publish(ctx, "stale")
}

// Put writes one entity. It must only be called from a mutation's Apply
// phase or a test; everything else reads.
func (s *Store[T]) Put(ctx context.Context, item T) {
	s.mu.Lock()
	s.items[item.EntityID()] = item.Clone()
	s.version++
	s.mu.Unlock()
	s.publish(ctx, "updated")
}

// Update transforms one entity in place during an optimistic apply.
// Missing ids are ignored.
func (s *Store[T]) Update(ctx context.Context, id types.ID, fn func(T) T) {
	s.mu.Lock()
	it, ok := s.items[id]
	if ok {
		s.items[id] = fn(it.Clone()).Clone()
		s.version++
	}
	s.mu.Unlock()
	if ok {
		s.publish(ctx, "updated")
	}
}

// Remove drops one entity during an optimistic apply, e.g. a discharge
// excluding the patient from active listings.
func (s *Store[T]) Remove(ctx context.Context, id types.ID) {
	s.mu.Lock()
	_, ok := s.items[id]
	if ok {
		delete(s.items, id)
		s.version++
	}
	n := len(s.items)
	s.mu.Unlock()
	if ok {
		metrics.SetCacheSize(s.name, n)
		s.publish(ctx, "updated")
	}
}

// snapshotState deep-copies the full collection for rollback
func (s *Store[T]) snapshotState() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[types.ID]T, len(s.items))
	for id, it := range s.items {
		snap[id] = it.Clone()
	}
	return snap
}

// restoreState replaces the collection with a snapshot verbatim
func (s *Store[T]) restoreState(ctx context.Context, state any) {
	snap := state.(map[types.ID]T)
	s.mu.Lock()
	s.items = make(map[types.ID]T, len(snap))
	for id, it := range snap {
		s.items[id] = it.Clone()
	}
	s.version++
	n := len(s.items)
	s.mu.Unlock()
	metrics.SetCacheSize(s.name, n)
	s.publish(ctx, "updated")
}

// BeginFetch marks a refetch as in flight and returns the context the
// fetch must use. A mutation starting against this store cancels it.
func (s *Store[T]) BeginFetch(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	s.inflightMu.Lock()
	if s.inflightCancel != nil {
		s.inflightCancel()
	}
	s.inflightCancel = cancel
	s.inflightMu.Unlock()

	done := func() {
		s.inflightMu.Lock()
		if s.inflightCancel != nil {
			s.inflightCancel()
			s.inflightCancel = nil
		}
		s.inflightMu.Unlock()
	}
	return ctx, done
}

// cancelInflight aborts any refetch in flight so a stale response cannot
// overwrite an optimistic write.
func (s *Store[T]) cancelInflight() {
	s.inflightMu.Lock()
	if s.inflightCancel != nil {
		s.inflightCancel()
		s.inflightCancel = nil
	}
	s.inflightMu.Unlock()
}

func (s *Store[T]) publish(ctx context.Context, what string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.NewEvent("cache."+s.name+"."+what, "cache", nil))
}
