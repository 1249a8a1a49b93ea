package beds

import (
	"fmt"

	"github.com/carepoint/engine/internal/shared/errors"
	"github.com/carepoint/engine/internal/shared/types"
)

// BedStatus is the occupancy state of a bed
type BedStatus string

const (
	StatusAvailable   BedStatus = "available"
	StatusOccupied    BedStatus = "occupied"
	StatusMaintenance BedStatus = "maintenance"
	// StatusCleaning is the backend's turnaround state after a release.
	// The engine never writes it optimistically; it arrives on the next poll.
	StatusCleaning BedStatus = "cleaning"
)

// Occupant is the patient reference carried on an occupied bed
type Occupant struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
}

// Bed is a hospital bed. Invariant: at most one occupying patient, and a
// patient occupies at most one bed.
type Bed struct {
	ID         types.ID    `json:"id"`
	BedNumber  string      `json:"bedNumber"`
	Department string      `json:"department"`
	BedType    string      `json:"bedType,omitempty"`
	Floor      string      `json:"floor,omitempty"`
	Wing       string      `json:"wing,omitempty"`
	Status     BedStatus   `json:"status"`
	Features   []string    `json:"features,omitempty"`
	Patient    *Occupant   `json:"patient"`
	AssignedAt *types.Time `json:"assignedAt,omitempty"`
}

// EntityID implements cache.Entity
func (b Bed) EntityID() types.ID {
	return b.ID
}

// Clone implements cache.Entity with a deep copy
func (b Bed) Clone() Bed {
	c := b
	if b.Features != nil {
		c.Features = append([]string(nil), b.Features...)
	}
	if b.Patient != nil {
		p := *b.Patient
		c.Patient = &p
	}
	if b.AssignedAt != nil {
		t := *b.AssignedAt
		c.AssignedAt = &t
	}
	return c
}

// ValidateAssign checks the assign precondition: only an available bed may
// be assigned. An occupied bed is a contract violation, not a no-op.
func ValidateAssign(b Bed) error {
	if b.Status != StatusAvailable {
		return errors.Legality(fmt.Sprintf("bed %s is %s, not available", b.BedNumber, b.Status))
	}
	return nil
}

// ValidateRelease checks the release precondition: only an occupied bed may
// be released.
func ValidateRelease(b Bed) error {
	if b.Status != StatusOccupied {
		return errors.Legality(fmt.Sprintf("bed %s is %s, not occupied", b.BedNumber, b.Status))
	}
	return nil
}
