package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/carepoint/engine/internal/shared/errors"
	"github.com/carepoint/engine/internal/shared/metrics"
)

// Target is a cache store as the coordinator sees it: snapshot, restore,
// staleness, in-flight fetch cancellation. Every *Store[T] is a Target.
type Target interface {
	Name() string
	MarkStale(ctx context.Context)

	snapshotState() any
	restoreState(ctx context.Context, state any)
	cancelInflight()
}

// Mutation is one optimistic state change expressed as an explicit
// three-phase command: snapshot, apply, commit-or-rollback.
type Mutation struct {
	// Name labels the mutation for logs and metrics, e.g. "alert.acknowledge".
	Name string
	// Stores lists every store the apply phase touches. The first entry is
	// the primary entity type.
	Stores []Target
	// Validate runs before anything touches the cache. Validation and
	// legality failures abort here with the cache untouched.
	Validate func() error
	// Apply transforms the cache synchronously to the intended
	// post-mutation state, before any network round trip.
	Apply func(ctx context.Context)
	// Call issues the network request.
	Call func(ctx context.Context) error
}

// Coordinator serializes mutations per entity type and owns the
// snapshot/apply/rollback discipline. Two mutations against the same store
// never interleave their snapshot and rollback steps.
type Coordinator struct {
	log zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCoordinator creates a coordinator
func NewCoordinator(log zerolog.Logger) *Coordinator {
	return &Coordinator{
		log:   log.With().Str("component", "coordinator").Logger(),
		locks: make(map[string]*sync.Mutex),
	}
}

// Run executes the mutation protocol:
//
//  1. cancel in-flight refetches for the affected stores
//  2. snapshot each store (full copy)
//  3. apply the optimistic write
//  4. issue the request
//  5. on failure restore every snapshot verbatim and surface the error
//  6. in all cases mark the stores stale so the next poll reconciles
func (c *Coordinator) Run(ctx context.Context, m Mutation) error {
	if m.Validate != nil {
		if err := m.Validate(); err != nil {
			metrics.RecordMutation(c.primary(m), "rejected")
			return err
		}
	}

	unlock := c.lockStores(m.Stores)
	defer unlock()

	for _, s := range m.Stores {
		s.cancelInflight()
	}

	snaps := make([]any, len(m.Stores))
	for i, s := range m.Stores {
		snaps[i] = s.snapshotState()
	}

	if m.Apply != nil {
		m.Apply(ctx)
	}

	err := m.Call(ctx)

	if err != nil {
		if errors.Rollbackable(err) {
			for i, s := range m.Stores {
				s.restoreState(ctx, snaps[i])
			}
			metrics.RecordRollback(c.primary(m))
		}
		for _, s := range m.Stores {
			s.MarkStale(ctx)
		}
		metrics.RecordMutation(c.primary(m), "failed")
		c.log.Warn().Str("mutation", m.Name).Err(err).Msg("mutation rolled back")
		return err
	}

	for _, s := range m.Stores {
		s.MarkStale(ctx)
	}
	metrics.RecordMutation(c.primary(m), "success")
	c.log.Debug().Str("mutation", m.Name).Msg("mutation committed")
	return nil
}

func (c *Coordinator) primary(m Mutation) string {
	if len(m.Stores) > 0 {
		return m.Stores[0].Name()
	}
	return m.Name
}

// lockStores acquires the per-entity-type locks in name order so two
// multi-store mutations cannot deadlock.
func (c *Coordinator) lockStores(stores []Target) func() {
	names := make([]string, 0, len(stores))
	seen := make(map[string]bool, len(stores))
	for _, s := range stores {
		if !seen[s.Name()] {
			names = append(names, s.Name())
			seen[s.Name()] = true
		}
	}
	sort.Strings(names)

	locked := make([]*sync.Mutex, 0, len(names))
	for _, name := range names {
		c.mu.Lock()
		lk, ok := c.locks[name]
		if !ok {
			lk = &sync.Mutex{}
			c.locks[name] = lk
		}
		c.mu.Unlock()
		lk.Lock()
		locked = append(locked, lk)
	}

	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}
