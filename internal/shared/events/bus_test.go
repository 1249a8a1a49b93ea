package events

import (
	"context"
	"testing"
)

func TestPatternMatching(t *testing.T) {
	tests := []struct {
		pattern string
		event   string
		want    bool
	}{
		{"*", "cache.alerts.stale", true},
		{"cache.alerts.stale", "cache.alerts.stale", true},
		{"cache.alerts.*", "cache.alerts.stale", true},
		{"cache.alerts.*", "cache.alerts.updated", true},
		{"cache.*.stale", "cache.beds.stale", true},
		{"cache.alerts.*", "cache.beds.stale", false},
		{"cache.alerts.stale", "cache.alerts.updated", false},
		{"cache.alerts.stale.extra", "cache.alerts.stale", false},
		{"triage.downgrade", "triage.downgrade", true},
	}

	for _, tt := range tests {
		if got := matchesPattern(tt.event, tt.pattern); got != tt.want {
			t.Errorf("matchesPattern(%q, %q) = %v, want %v", tt.event, tt.pattern, got, tt.want)
		}
	}
}

func TestPublishDeliversToMatchingSubscribers(t *testing.T) {
	bus := NewBus()
	var alerts, all []string

	bus.Subscribe("cache.alerts.*", func(_ context.Context, e Event) {
		alerts = append(alerts, e.Type)
	})
	bus.Subscribe("*", func(_ context.Context, e Event) {
		all = append(all, e.Type)
	})

	bus.Publish(context.Background(), NewEvent("cache.alerts.stale", "test", nil))
	bus.Publish(context.Background(), NewEvent("cache.beds.stale", "test", nil))

	if len(alerts) != 1 || alerts[0] != "cache.alerts.stale" {
		t.Errorf("alerts subscriber got %v", alerts)
	}
	if len(all) != 2 {
		t.Errorf("wildcard subscriber got %v", all)
	}
}

func TestEventCarriesActor(t *testing.T) {
	e := NewEvent("triage.downgrade", "patients", map[string]any{"patientId": "p-1"})
	e = e.WithActor("staff-9", "doctor")

	if e.ID == "" {
		t.Error("event must get an id")
	}
	if e.ActorID != "staff-9" || e.ActorRole != "doctor" {
		t.Errorf("actor = %s/%s", e.ActorID, e.ActorRole)
	}
	if e.Timestamp.IsZero() {
		t.Error("event must be timestamped")
	}
}
