package alerts

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/carepoint/engine/internal/cache"
	"github.com/carepoint/engine/internal/shared/errors"
	"github.com/carepoint/engine/internal/shared/types"
)

// Backend is the slice of the REST client the alert service needs
type Backend interface {
	ListAlerts(ctx context.Context) ([]Alert, error)
	MarkAlertRead(ctx context.Context, id types.ID) error
	AcknowledgeAlert(ctx context.Context, id types.ID) error
	ResolveAlert(ctx context.Context, id types.ID, resolution string) error
	DismissAlert(ctx context.Context, id types.ID) error
}

// Service owns the alert cache and applies handling-state changes
// optimistically through the mutation coordinator.
type Service struct {
	store   *cache.Store[Alert]
	coord   *cache.Coordinator
	backend Backend
	log     zerolog.Logger
}

// NewService creates the alert service
func NewService(store *cache.Store[Alert], coord *cache.Coordinator, backend Backend, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		coord:   coord,
		backend: backend,
		log:     log.With().Str("component", "alerts").Logger(),
	}
}

// Store exposes the cache store for poller wiring
func (s *Service) Store() *cache.Store[Alert] {
	return s.store
}

var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// List returns cached alerts ordered critical-first, newest within a tier.
// Dismissed alerts are excluded.
func (s *Service) List() []Alert {
	all := s.store.List()
	out := all[:0]
	for _, a := range all {
		if a.Status != StatusDismissed {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if priorityRank[out[i].Priority] != priorityRank[out[j].Priority] {
			return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt.Time)
	})
	return out
}

// UnreadCount returns the number of unread alerts
func (s *Service) UnreadCount() int {
	n := 0
	for _, a := range s.store.List() {
		if a.Status == StatusUnread {
			n++
		}
	}
	return n
}

// MarkRead marks an alert read
func (s *Service) MarkRead(ctx context.Context, id types.ID) error {
	return s.transition(ctx, "alert.read", id, StatusRead, func(a Alert) Alert {
		now := types.Now()
		a.Status = StatusRead
		a.ReadAt = &now
		return a
	}, func(ctx context.Context) error {
		return s.backend.MarkAlertRead(ctx, id)
	})
}

// Acknowledge acknowledges an alert
func (s *Service) Acknowledge(ctx context.Context, id types.ID) error {
	return s.transition(ctx, "alert.acknowledge", id, StatusAcknowledged, func(a Alert) Alert {
		now := types.Now()
		a.Status = StatusAcknowledged
		a.AcknowledgedAt = &now
		return a
	}, func(ctx context.Context) error {
		return s.backend.AcknowledgeAlert(ctx, id)
	})
}

// Resolve resolves an alert with a resolution text
func (s *Service) Resolve(ctx context.Context, id types.ID, resolution string) error {
	if resolution == "" {
		return errors.Validation("resolution is required", map[string]string{"resolution": "required"})
	}
	return s.transition(ctx, "alert.resolve", id, StatusResolved, func(a Alert) Alert {
		now := types.Now()
		a.Status = StatusResolved
		a.ResolvedAt = &now
		a.Resolution = resolution
		return a
	}, func(ctx context.Context) error {
		return s.backend.ResolveAlert(ctx, id, resolution)
	})
}

// Dismiss dismisses an alert, removing it from the visible list
func (s *Service) Dismiss(ctx context.Context, id types.ID) error {
	return s.transition(ctx, "alert.dismiss", id, StatusDismissed, func(a Alert) Alert {
		a.Status = StatusDismissed
		return a
	}, func(ctx context.Context) error {
		return s.backend.DismissAlert(ctx, id)
	})
}

// transition runs one handling-state change through the mutation protocol
func (s *Service) transition(ctx context.Context, name string, id types.ID, to AlertStatus, apply func(Alert) Alert, call func(context.Context) error) error {
	current, ok := s.store.Get(id)
	if !ok {
		return errors.NotFound("alert", id.String())
	}
	return s.coord.Run(ctx, cache.Mutation{
		Name:   name,
		Stores: []cache.Target{s.store},
		Validate: func() error {
			return ValidateTransition(current.Status, to)
		},
		Apply: func(ctx context.Context) {
			s.store.Update(ctx, id, apply)
		},
		Call: call,
	})
}
