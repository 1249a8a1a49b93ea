package cache

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/carepoint/engine/internal/shared/errors"
	"github.com/carepoint/engine/internal/shared/types"
)

type item struct {
	ID   types.ID
	Tags []string
}

func (i item) EntityID() types.ID { return i.ID }

func (i item) Clone() item {
	c := i
	if i.Tags != nil {
		c.Tags = append([]string(nil), i.Tags...)
	}
	return c
}

func seedStore(t *testing.T, items ...item) *Store[item] {
	t.Helper()
	s := NewStore[item]("items", nil)
	s.ReplaceAll(context.Background(), items)
	return s
}

func TestStoreReadsReturnCopies(t *testing.T) {
	id := types.NewID()
	s := seedStore(t, item{ID: id, Tags: []string{"a"}})

	got, _ := s.Get(id)
	got.Tags[0] = "mutated"

	again, _ := s.Get(id)
	if again.Tags[0] != "a" {
		t.Error("Get must return an isolated copy")
	}
}

func TestStoreStaleLifecycle(t *testing.T) {
	s := seedStore(t)
	if s.Stale() {
		t.Error("fresh store must not be stale")
	}
	s.MarkStale(context.Background())
	if !s.Stale() {
		t.Error("MarkStale must flag the store")
	}
	s.ReplaceAll(context.Background(), nil)
	if s.Stale() {
		t.Error("ReplaceAll must clear staleness")
	}
}

func TestCoordinatorRollbackIsVerbatim(t *testing.T) {
	id := types.NewID()
	before := item{ID: id, Tags: []string{"x", "y"}}
	s := seedStore(t, before)
	coord := NewCoordinator(zerolog.Nop())

	err := coord.Run(context.Background(), Mutation{
		Name:   "test.fail",
		Stores: []Target{s},
		Apply: func(ctx context.Context) {
			s.Update(ctx, id, func(i item) item {
				i.Tags = append(i.Tags, "optimistic")
				return i
			})
		},
		Call: func(ctx context.Context) error {
			return errors.FromStatus(500, "backend down")
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	after, _ := s.Get(id)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("rollback not verbatim: %+v", after)
	}
	if !s.Stale() {
		t.Error("failed mutation must leave the store stale")
	}
}

func TestCoordinatorValidationAbortsBeforeApply(t *testing.T) {
	s := seedStore(t, item{ID: types.NewID()})
	coord := NewCoordinator(zerolog.Nop())
	applied := false

	err := coord.Run(context.Background(), Mutation{
		Name:   "test.rejected",
		Stores: []Target{s},
		Validate: func() error {
			return errors.Validation("bad input", nil)
		},
		Apply: func(ctx context.Context) { applied = true },
		Call:  func(ctx context.Context) error { return nil },
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if applied {
		t.Error("apply must not run after validation failure")
	}
	if s.Stale() {
		t.Error("rejected mutation must not mark the store stale")
	}
}

func TestCoordinatorSuccessMarksStale(t *testing.T) {
	id := types.NewID()
	s := seedStore(t, item{ID: id})
	coord := NewCoordinator(zerolog.Nop())

	err := coord.Run(context.Background(), Mutation{
		Name:   "test.ok",
		Stores: []Target{s},
		Apply: func(ctx context.Context) {
			s.Update(ctx, id, func(i item) item {
				i.Tags = []string{"written"}
				return i
			})
		},
		Call: func(ctx context.Context) error { return nil },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _ := s.Get(id)
	if len(got.Tags) != 1 || got.Tags[0] != "written" {
		t.Errorf("optimistic write lost: %+v", got)
	}
	if !s.Stale() {
		t.Error("committed mutation must mark the store stale for reconciliation")
	}
}

func TestCoordinatorCancelsInflightFetch(t *testing.T) {
	s := seedStore(t)
	coord := NewCoordinator(zerolog.Nop())

	fctx, done := s.BeginFetch(context.Background())
	defer done()

	err := coord.Run(context.Background(), Mutation{
		Name:   "test.cancel",
		Stores: []Target{s},
		Call:   func(ctx context.Context) error { return nil },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fctx.Err() == nil {
		t.Error("mutation must cancel the in-flight fetch")
	}
}

func TestRetainedServesSnapshotAfterRemoval(t *testing.T) {
	id := types.NewID()
	s := seedStore(t, item{ID: id, Tags: []string{"live"}})
	r := NewRetained(s)

	r.Select(id)
	if _, ok := r.Current(); !ok {
		t.Fatal("live value must be served while cached")
	}

	s.Remove(context.Background(), id)
	got, ok := r.Current()
	if !ok {
		t.Fatal("retained snapshot must survive removal")
	}
	if len(got.Tags) != 1 || got.Tags[0] != "live" {
		t.Errorf("retained snapshot = %+v", got)
	}

	r.Close()
	if _, ok := r.Current(); ok {
		t.Error("closed slot must serve nothing")
	}
}

func TestRetainedSelectReplacesPriorSnapshot(t *testing.T) {
	a := types.NewID()
	b := types.NewID()
	s := seedStore(t, item{ID: a, Tags: []string{"a"}}, item{ID: b, Tags: []string{"b"}})
	r := NewRetained(s)

	r.Select(a)
	s.Remove(context.Background(), a)
	r.Select(b)

	got, ok := r.Current()
	if !ok || got.ID != b {
		t.Errorf("Current() = %+v, want entity b", got)
	}
}

func TestDemandFetchesOnceAndInvalidates(t *testing.T) {
	calls := 0
	d := NewDemand("things", func(ctx context.Context, key types.ID) ([]string, error) {
		calls++
		return []string{fmt.Sprintf("fetch-%d", calls)}, nil
	})

	id := types.NewID()
	v, err := d.Get(context.Background(), id)
	if err != nil || v[0] != "fetch-1" {
		t.Fatalf("Get = %v, %v", v, err)
	}
	if v, _ := d.Get(context.Background(), id); v[0] != "fetch-1" {
		t.Error("second Get must be served from cache")
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}

	d.Invalidate(id)
	if v, _ := d.Get(context.Background(), id); v[0] != "fetch-2" {
		t.Error("Get after Invalidate must refetch")
	}
}

func TestDemandAsMutationTarget(t *testing.T) {
	d := NewDemand("things", func(ctx context.Context, key types.ID) ([]string, error) {
		return []string{"server"}, nil
	})
	id := types.NewID()
	if _, err := d.Get(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	coord := NewCoordinator(zerolog.Nop())

	err := coord.Run(context.Background(), Mutation{
		Name:   "test.sub",
		Stores: []Target{d},
		Apply: func(ctx context.Context) {
			d.Put(id, []string{"optimistic"})
		},
		Call: func(ctx context.Context) error {
			return errors.FromStatus(500, "")
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	// Rollback restored the snapshot, then staleness dropped it: the next
	// access refetches rather than serving the optimistic write.
	if v, _ := d.Get(context.Background(), id); v[0] != "server" {
		t.Errorf("post-rollback value = %v", v)
	}
}
