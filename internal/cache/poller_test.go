package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepoint/engine/internal/shared/errors"
	"github.com/carepoint/engine/internal/shared/types"
)

func TestRefreshInstallsCollection(t *testing.T) {
	id := types.NewID()
	s := NewStore[item]("items", nil)
	s.MarkStale(context.Background())

	p := NewPoller(s, func(ctx context.Context) ([]item, error) {
		return []item{{ID: id}}, nil
	}, time.Minute, zerolog.Nop())

	p.refresh(context.Background())

	if _, ok := s.Get(id); !ok {
		t.Error("refresh must install the fetched collection")
	}
	if s.Stale() {
		t.Error("refresh must clear staleness")
	}
}

func TestRefreshKeepsCacheOnError(t *testing.T) {
	id := types.NewID()
	s := seedStore(t, item{ID: id})

	p := NewPoller(s, func(ctx context.Context) ([]item, error) {
		return nil, errors.Transient(context.DeadlineExceeded)
	}, time.Minute, zerolog.Nop())

	p.refresh(context.Background())

	if _, ok := s.Get(id); !ok {
		t.Error("failed refresh must leave the cached collection in place")
	}
}

func TestRefreshDiscardsSupersededResponse(t *testing.T) {
	id := types.NewID()
	s := NewStore[item]("items", nil)

	// A mutation cancels the in-flight fetch while the response is already
	// on the wire; the stale response must not overwrite the cache.
	p := NewPoller(s, func(ctx context.Context) ([]item, error) {
		s.cancelInflight()
		return []item{{ID: id}}, nil
	}, time.Minute, zerolog.Nop())

	p.refresh(context.Background())

	if _, ok := s.Get(id); ok {
		t.Error("superseded response must be discarded")
	}
}

func TestKickNeverBlocks(t *testing.T) {
	s := NewStore[item]("items", nil)
	p := NewPoller(s, func(ctx context.Context) ([]item, error) { return nil, nil }, time.Minute, zerolog.Nop())

	for i := 0; i < 10; i++ {
		p.Kick()
	}
}
