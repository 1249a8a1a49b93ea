package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepoint/engine/internal/shared/metrics"
)

// FetchFunc loads the full server-side collection for one entity type
type FetchFunc[T Entity[T]] func(ctx context.Context) ([]T, error)

// Poller refreshes a store on a fixed interval. Kick forces an immediate
// refresh, used on regaining foreground focus and after a mutation marks
// the store stale.
type Poller[T Entity[T]] struct {
	store    *Store[T]
	fetch    FetchFunc[T]
	interval time.Duration
	kick     chan struct{}
	log      zerolog.Logger
}

// NewPoller creates a poller for the store
func NewPoller[T Entity[T]](store *Store[T], fetch FetchFunc[T], interval time.Duration, log zerolog.Logger) *Poller[T] {
	return &Poller[T]{
		store:    store,
		fetch:    fetch,
		interval: interval,
		kick:     make(chan struct{}, 1),
		log:      log.With().Str("component", "poller").Str("entity", store.Name()).Logger(),
	}
}

// Kick requests an immediate refresh without waiting for the next tick
func (p *Poller[T]) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run polls until the context is cancelled. The first refresh happens
// immediately.
func (p *Poller[T]) Run(ctx context.Context) {
	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		case <-p.kick:
			p.refresh(ctx)
		}
	}
}

// refresh fetches the collection and installs it, unless a mutation
// cancelled the fetch mid-flight, in which case the response is discarded
// so it cannot overwrite the optimistic write.
func (p *Poller[T]) refresh(ctx context.Context) {
	fctx, done := p.store.BeginFetch(ctx)
	items, err := p.fetch(fctx)
	cancelled := fctx.Err() != nil && ctx.Err() == nil
	done()

	if cancelled {
		p.log.Debug().Msg("refresh superseded by mutation, response discarded")
		return
	}
	metrics.RecordPoll(p.store.Name(), err)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn().Err(err).Msg("poll failed; next cycle will retry")
		}
		return
	}
	p.store.ReplaceAll(ctx, items)
}
