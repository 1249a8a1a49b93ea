package beds

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/carepoint/engine/internal/cache"
	"github.com/carepoint/engine/internal/shared/errors"
	"github.com/carepoint/engine/internal/shared/types"
)

// Backend is the slice of the REST client the bed service needs
type Backend interface {
	ListBeds(ctx context.Context) ([]Bed, error)
	AssignBed(ctx context.Context, bedID, patientID types.ID) error
	ReleaseBed(ctx context.Context, bedID types.ID) error
}

// PatientDirectory is the patient-side view a bed mutation needs. The
// patient service implements it; keeping it an interface here keeps the
// dependency one-way.
type PatientDirectory interface {
	PatientName(id types.ID) (string, bool)
	// SetPatientBed optimistically rebinds the patient's bed reference.
	// Must only be called inside a mutation's apply phase.
	SetPatientBed(ctx context.Context, patientID types.ID, bedID *types.ID)
	PatientStore() cache.Target
}

// Service owns the bed board cache and the assign/release mutations. Both
// mutations touch the patient cache too, so the coordinator locks and
// snapshots both stores together.
type Service struct {
	store    *cache.Store[Bed]
	coord    *cache.Coordinator
	backend  Backend
	patients PatientDirectory
	log      zerolog.Logger
}

// NewService creates the bed service
func NewService(store *cache.Store[Bed], coord *cache.Coordinator, backend Backend, patients PatientDirectory, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		coord:    coord,
		backend:  backend,
		patients: patients,
		log:      log.With().Str("component", "beds").Logger(),
	}
}

// Store exposes the cache store for poller wiring
func (s *Service) Store() *cache.Store[Bed] {
	return s.store
}

// List returns the cached bed board grouped by department, bed number order
// within a department.
func (s *Service) List() []Bed {
	out := s.store.List()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Department != out[j].Department {
			return out[i].Department < out[j].Department
		}
		return out[i].BedNumber < out[j].BedNumber
	})
	return out
}

// Available returns the available beds, optionally filtered by department
func (s *Service) Available(department string) []Bed {
	var out []Bed
	for _, b := range s.List() {
		if b.Status != StatusAvailable {
			continue
		}
		if department != "" && b.Department != department {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Assign assigns a patient to a bed. The bed must be available and the
// patient known; an occupied bed is rejected before anything is written.
func (s *Service) Assign(ctx context.Context, bedID, patientID types.ID) error {
	bed, ok := s.store.Get(bedID)
	if !ok {
		return errors.NotFound("bed", bedID.String())
	}
	name, ok := s.patients.PatientName(patientID)
	if !ok {
		return errors.NotFound("patient", patientID.String())
	}

	return s.coord.Run(ctx, cache.Mutation{
		Name:   "bed.assign",
		Stores: []cache.Target{s.store, s.patients.PatientStore()},
		Validate: func() error {
			return ValidateAssign(bed)
		},
		Apply: func(ctx context.Context) {
			now := types.Now()
			s.store.Update(ctx, bedID, func(b Bed) Bed {
				b.Status = StatusOccupied
				b.Patient = &Occupant{ID: patientID, Name: name}
				b.AssignedAt = &now
				return b
			})
			s.patients.SetPatientBed(ctx, patientID, &bedID)
		},
		Call: func(ctx context.Context) error {
			return s.backend.AssignBed(ctx, bedID, patientID)
		},
	})
}

// Release frees an occupied bed. The optimistic write shows the bed as
// available; the backend actually moves it through a cleaning turnaround,
// which the next poll surfaces.
func (s *Service) Release(ctx context.Context, bedID types.ID) error {
	bed, ok := s.store.Get(bedID)
	if !ok {
		return errors.NotFound("bed", bedID.String())
	}

	return s.coord.Run(ctx, cache.Mutation{
		Name:   "bed.release",
		Stores: []cache.Target{s.store, s.patients.PatientStore()},
		Validate: func() error {
			return ValidateRelease(bed)
		},
		Apply: func(ctx context.Context) {
			s.store.Update(ctx, bedID, func(b Bed) Bed {
				b.Status = StatusAvailable
				b.Patient = nil
				b.AssignedAt = nil
				return b
			})
			if bed.Patient != nil {
				s.patients.SetPatientBed(ctx, bed.Patient.ID, nil)
			}
		},
		Call: func(ctx context.Context) error {
			return s.backend.ReleaseBed(ctx, bedID)
		},
	})
}
