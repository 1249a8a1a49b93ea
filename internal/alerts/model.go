package alerts

import (
	"encoding/json"
	"fmt"

	"github.com/carepoint/engine/internal/shared/errors"
	"github.com/carepoint/engine/internal/shared/types"
)

// Priority ranks an alert's urgency
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// AlertStatus is the handling state of an alert
type AlertStatus string

const (
	StatusUnread       AlertStatus = "unread"
	StatusRead         AlertStatus = "read"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusResolved     AlertStatus = "resolved"
	StatusDismissed    AlertStatus = "dismissed"
)

// rank orders the forward-only handling chain. Dismissed sits outside the
// chain: reachable from anything except resolved.
var rank = map[AlertStatus]int{
	StatusUnread:       0,
	StatusRead:         1,
	StatusAcknowledged: 2,
	StatusResolved:     3,
}

// ValidateTransition checks the alert status machine: the handling chain
// unread -> read -> acknowledged -> resolved only moves forward, dismissed
// is reachable from any non-resolved state, and nothing leaves resolved or
// dismissed.
func ValidateTransition(from, to AlertStatus) error {
	if from == to {
		return errors.Legality(fmt.Sprintf("alert is already %s", to))
	}
	switch {
	case from == StatusResolved, from == StatusDismissed:
		return errors.Legality(fmt.Sprintf("alert is %s and cannot change", from))
	case to == StatusDismissed:
		return nil
	case rank[to] <= rank[from]:
		return errors.Legality(fmt.Sprintf("alert cannot move from %s back to %s", from, to))
	}
	return nil
}

// Alert is a system alert. The engine only interprets the fields below;
// everything else the backend sends rides along in Extra so a rollback
// restores the record byte-for-byte.
type Alert struct {
	ID             types.ID    `json:"id"`
	Title          string      `json:"title"`
	Message        string      `json:"message"`
	Priority       Priority    `json:"priority"`
	Category       string      `json:"category"`
	Status         AlertStatus `json:"status"`
	PatientID      *types.ID   `json:"patientId"`
	TriggeredBy    string      `json:"triggeredBy,omitempty"`
	ForRoles       []string    `json:"forRoles,omitempty"`
	ReadAt         *types.Time `json:"readAt,omitempty"`
	AcknowledgedAt *types.Time `json:"acknowledgedAt,omitempty"`
	ResolvedAt     *types.Time `json:"resolvedAt,omitempty"`
	Resolution     string      `json:"resolution,omitempty"`
	CreatedAt      types.Time  `json:"createdAt"`

	// Extra preserves backend fields the engine does not interpret.
	Extra json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw payload alongside the interpreted fields
func (a *Alert) UnmarshalJSON(b []byte) error {
	type plain Alert
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*a = Alert(p)
	a.Extra = append(json.RawMessage(nil), b...)
	return nil
}

// EntityID implements cache.Entity
func (a Alert) EntityID() types.ID {
	return a.ID
}

// Clone implements cache.Entity with a deep copy
func (a Alert) Clone() Alert {
	c := a
	if a.ForRoles != nil {
		c.ForRoles = append([]string(nil), a.ForRoles...)
	}
	if a.PatientID != nil {
		id := *a.PatientID
		c.PatientID = &id
	}
	c.ReadAt = cloneTime(a.ReadAt)
	c.AcknowledgedAt = cloneTime(a.AcknowledgedAt)
	c.ResolvedAt = cloneTime(a.ResolvedAt)
	if a.Extra != nil {
		c.Extra = append(json.RawMessage(nil), a.Extra...)
	}
	return c
}

func cloneTime(t *types.Time) *types.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
