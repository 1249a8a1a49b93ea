package triage

import (
	"fmt"

	"github.com/carepoint/engine/internal/shared/errors"
	"github.com/carepoint/engine/internal/shared/types"
)

// Level is an acuity score: 0 means not yet triaged, 1 is most critical,
// 4 is least urgent.
type Level int

const (
	LevelPending   Level = 0
	LevelCritical  Level = 1
	LevelEmergent  Level = 2
	LevelUrgent    Level = 3
	LevelNonUrgent Level = 4
)

var levelLabels = map[Level]string{
	LevelCritical:  "L1 - Critical",
	LevelEmergent:  "L2 - Emergent",
	LevelUrgent:    "L3 - Urgent",
	LevelNonUrgent: "L4 - Non-Urgent",
}

var levelColors = map[Level]string{
	LevelCritical:  "red",
	LevelEmergent:  "orange",
	LevelUrgent:    "yellow",
	LevelNonUrgent: "green",
}

// Valid reports whether the level is an assignable acuity (1-4)
func (l Level) Valid() bool {
	return l >= LevelCritical && l <= LevelNonUrgent
}

// Label returns the display label the backend uses, e.g. "L3 - Urgent"
func (l Level) Label() string {
	if s, ok := levelLabels[l]; ok {
		return s
	}
	return "Pending"
}

// Color returns the display color the backend uses
func (l Level) Color() string {
	if s, ok := levelColors[l]; ok {
		return s
	}
	return "gray"
}

// Status is the patient lifecycle status
type Status string

const (
	StatusPendingTriage    Status = "pending_triage"
	StatusActive           Status = "active"
	StatusAdmitted         Status = "admitted"
	StatusTransferredToOPD Status = "transferred_to_opd"
	StatusDischarged       Status = "discharged"
)

// Terminal reports whether the status excludes the patient from active
// listings. The record is never deleted, only filtered out.
func (s Status) Terminal() bool {
	return s == StatusDischarged || s == StatusTransferredToOPD
}

// Source classifies how a triage event originated
type Source string

const (
	SourceAI     Source = "ai"
	SourceManual Source = "manual"
)

// ConditionChange is the clinician's coarse assessment supplied with a
// recommendation request.
type ConditionChange string

const (
	ConditionImproved     ConditionChange = "improved"
	ConditionStable       ConditionChange = "stable"
	ConditionDeteriorated ConditionChange = "deteriorated"
)

// Staff identifies the staff member who applied a shift
type Staff struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
	Role string   `json:"role"`
}

// Event is one immutable entry in a patient's triage timeline. The most
// recent event is the authoritative source of the current level and
// reasoning; fields cached on the patient record are fallbacks only.
type Event struct {
	ID                  types.ID   `json:"id"`
	FromPriority        *Level     `json:"fromPriority"`
	ToPriority          Level      `json:"toPriority"`
	PriorityLabel       string     `json:"priorityLabel"`
	PriorityColor       string     `json:"priorityColor"`
	Reasoning           string     `json:"reasoning"`
	Recommendations     []string   `json:"recommendations"`
	Confidence          *float64   `json:"confidence"`
	EstimatedWaitTime   string     `json:"estimatedWaitTime,omitempty"`
	SuggestedDepartment string     `json:"suggestedDepartment,omitempty"`
	Source              Source     `json:"source"`
	AppliedBy           *Staff     `json:"appliedBy"`
	AppliedAt           types.Time `json:"appliedAt"`
}

// Timeline is a patient's triage history, most recent first, as the
// backend's triage-timeline endpoint returns it.
type Timeline []Event

// Latest returns the most recent event, or nil for an empty timeline
func (t Timeline) Latest() *Event {
	if len(t) == 0 {
		return nil
	}
	return &t[0]
}

// CurrentLevel projects the authoritative triage level: the latest event
// wins, the patient-record field is only a fallback.
func (t Timeline) CurrentLevel(fallback Level) Level {
	if e := t.Latest(); e != nil {
		return e.ToPriority
	}
	return fallback
}

// CurrentReasoning projects the authoritative reasoning text
func (t Timeline) CurrentReasoning(fallback string) string {
	if e := t.Latest(); e != nil && e.Reasoning != "" {
		return e.Reasoning
	}
	return fallback
}

// ChainValid verifies the append-only invariant: each event's fromPriority
// equals the previous event's toPriority, and only the first event may have
// a nil fromPriority.
func (t Timeline) ChainValid() bool {
	for i := len(t) - 1; i >= 0; i-- {
		e := t[i]
		if i == len(t)-1 {
			// Oldest event: nil from is the initial triage.
			continue
		}
		if e.FromPriority == nil {
			return false
		}
		if *e.FromPriority != t[i+1].ToPriority {
			return false
		}
	}
	return true
}

// ValidateShift checks whether a shift to the target level is legal for a
// patient in the given status.
func ValidateShift(status Status, to Level) error {
	if !to.Valid() {
		return errors.Legality(fmt.Sprintf("invalid priority level %d (must be 1-4)", to))
	}
	if status == StatusDischarged {
		return errors.Legality("cannot shift triage of a discharged patient")
	}
	return nil
}

// DowngradeAdvisory returns a non-blocking advisory when a shift moves the
// patient to a less acute level (3 or 4). It never changes patient status
// itself.
func DowngradeAdvisory(from, to Level) (string, bool) {
	if !from.Valid() || !to.Valid() {
		return "", false
	}
	if to > from && to >= LevelUrgent {
		return fmt.Sprintf("patient downgraded to %s: eligible for outpatient transfer", to.Label()), true
	}
	return "", false
}

// EligibleForOPDTransfer reports whether the patient may be transferred to
// the outpatient department: status active, level 3 or 4, and the two most
// recent timeline events show a downgrade. Only the most recent event pair
// is inspected; earlier downgrades do not count.
func EligibleForOPDTransfer(status Status, level Level, timeline Timeline) bool {
	if status != StatusActive {
		return false
	}
	if level != LevelUrgent && level != LevelNonUrgent {
		return false
	}
	if len(timeline) < 2 {
		return false
	}
	latest := timeline.Latest()
	return latest.FromPriority != nil && latest.ToPriority > *latest.FromPriority
}

// CanDischarge reports whether discharge is legal from the given status
func CanDischarge(status Status) bool {
	switch status {
	case StatusActive, StatusAdmitted, StatusTransferredToOPD:
		return true
	}
	return false
}

// ShiftRequest is the payload for applying a triage shift. Reasoning is
// required; the advisory fields come along when the shift was staged from
// an AI recommendation.
type ShiftRequest struct {
	Priority          Level    `json:"priority"`
	Reasoning         string   `json:"reasoning"`
	Recommendations   []string `json:"recommendations,omitempty"`
	Confidence        *float64 `json:"confidence,omitempty"`
	EstimatedWaitTime string   `json:"estimatedWaitTime,omitempty"`
}

// ShiftContext is the clinical context sent with a recommendation request
type ShiftContext struct {
	Procedure       string          `json:"procedure"`
	ConditionChange ConditionChange `json:"conditionChange"`
	Notes           string          `json:"notes"`
}

// Recommendation is the AI advisor's staged suggestion. It is advisory
// only; nothing is applied until the caller submits a ShiftRequest.
type Recommendation struct {
	CurrentPriority     *Level   `json:"currentPriority"`
	CurrentLabel        string   `json:"currentLabel"`
	RecommendedPriority Level    `json:"recommendedPriority"`
	RecommendedLabel    string   `json:"recommendedLabel"`
	Reasoning           string   `json:"reasoning"`
	Recommendations     []string `json:"recommendations"`
	Confidence          *float64 `json:"confidence"`
	EstimatedWaitTime   string   `json:"estimatedWaitTime"`
	ShouldShift         bool     `json:"shouldShift"`
}
