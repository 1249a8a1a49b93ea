package cache

import (
	"sync"

	"github.com/carepoint/engine/internal/shared/types"
)

// Retained is the snapshot-retention slot for the currently selected
// entity. When a mutation removes the entity from its listing (discharge,
// outpatient transfer), the live lookup goes empty; Current keeps serving
// the last non-nil live value so an open detail view never goes blank
// mid-workflow. The slot clears only on Close or when a different entity
// is selected.
type Retained[T Entity[T]] struct {
	store *Store[T]

	mu       sync.Mutex
	selected types.ID
	last     *T
	active   bool
}

// NewRetained creates a retention slot over the store
func NewRetained[T Entity[T]](store *Store[T]) *Retained[T] {
	return &Retained[T]{store: store}
}

// Select binds the slot to an entity id, replacing any prior selection
func (r *Retained[T]) Select(id types.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = id
	r.active = true
	r.last = nil
	if it, ok := r.store.Get(id); ok {
		r.last = &it
	}
}

// Close clears the slot; the retained snapshot is dropped
func (r *Retained[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = ""
	r.active = false
	r.last = nil
}

// Selected returns the bound id, if any
func (r *Retained[T]) Selected() (types.ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected, r.active
}

// Current returns the live value when the cache still has it, refreshing
// the retained snapshot as a side effect; otherwise the retained snapshot.
// The second return is false only when nothing was ever observed.
func (r *Retained[T]) Current() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if !r.active {
		return zero, false
	}
	if it, ok := r.store.Get(r.selected); ok {
		r.last = &it
		return it.Clone(), true
	}
	if r.last != nil {
		return (*r.last).Clone(), true
	}
	return zero, false
}
