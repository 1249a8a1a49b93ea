package beds

import (
	"context"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/carepoint/engine/internal/cache"
	"github.com/carepoint/engine/internal/shared/errors"
	"github.com/carepoint/engine/internal/shared/types"
)

type fakeBedBackend struct {
	fail  error
	calls []string
}

func (f *fakeBedBackend) ListBeds(ctx context.Context) ([]Bed, error) { return nil, nil }

func (f *fakeBedBackend) AssignBed(ctx context.Context, bedID, patientID types.ID) error {
	f.calls = append(f.calls, "assign")
	return f.fail
}

func (f *fakeBedBackend) ReleaseBed(ctx context.Context, bedID types.ID) error {
	f.calls = append(f.calls, "release")
	return f.fail
}

// fakeDirectory stands in for the patient service: a name table plus a
// target store recording bed rebinds.
type fakeDirectory struct {
	names map[types.ID]string
	store *cache.Store[patientStub]
	binds map[types.ID]*types.ID
}

type patientStub struct {
	ID types.ID
}

func (p patientStub) EntityID() types.ID { return p.ID }
func (p patientStub) Clone() patientStub { return p }

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		names: make(map[types.ID]string),
		store: cache.NewStore[patientStub]("patients", nil),
		binds: make(map[types.ID]*types.ID),
	}
}

func (f *fakeDirectory) PatientName(id types.ID) (string, bool) {
	name, ok := f.names[id]
	return name, ok
}

func (f *fakeDirectory) SetPatientBed(ctx context.Context, patientID types.ID, bedID *types.ID) {
	f.binds[patientID] = bedID
}

func (f *fakeDirectory) PatientStore() cache.Target { return f.store }

func newBedService(backend *fakeBedBackend, dir *fakeDirectory, seed ...Bed) (*Service, *cache.Store[Bed]) {
	store := cache.NewStore[Bed]("beds", nil)
	store.ReplaceAll(context.Background(), seed)
	coord := cache.NewCoordinator(zerolog.Nop())
	svc := NewService(store, coord, backend, dir, zerolog.Nop())
	return svc, store
}

func TestAssignAvailableBed(t *testing.T) {
	bedID := types.NewID()
	patientID := types.NewID()
	backend := &fakeBedBackend{}
	dir := newFakeDirectory()
	dir.names[patientID] = "Ana Petrova"
	svc, store := newBedService(backend, dir, Bed{ID: bedID, BedNumber: "ED-04", Status: StatusAvailable})

	if err := svc.Assign(context.Background(), bedID, patientID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	got, _ := store.Get(bedID)
	if got.Status != StatusOccupied {
		t.Errorf("status = %s, want occupied", got.Status)
	}
	if got.Patient == nil || got.Patient.ID != patientID || got.Patient.Name != "Ana Petrova" {
		t.Errorf("occupant = %+v", got.Patient)
	}
	if got.AssignedAt == nil {
		t.Error("assignedAt not set")
	}
	if bound := dir.binds[patientID]; bound == nil || *bound != bedID {
		t.Errorf("patient bed not rebound: %v", bound)
	}
}

func TestAssignOccupiedBedRejected(t *testing.T) {
	bedID := types.NewID()
	patientID := types.NewID()
	backend := &fakeBedBackend{}
	dir := newFakeDirectory()
	dir.names[patientID] = "Ana Petrova"
	occupant := &Occupant{ID: types.NewID(), Name: "Marko Ilic"}
	svc, store := newBedService(backend, dir, Bed{ID: bedID, BedNumber: "ED-04", Status: StatusOccupied, Patient: occupant})

	err := svc.Assign(context.Background(), bedID, patientID)
	if err == nil {
		t.Fatal("expected legality error")
	}
	if len(backend.calls) != 0 {
		t.Error("backend must not be called for an occupied bed")
	}
	got, _ := store.Get(bedID)
	if got.Patient == nil || got.Patient.Name != "Marko Ilic" {
		t.Errorf("occupant must be untouched, got %+v", got.Patient)
	}
}

func TestAssignUnknownPatient(t *testing.T) {
	bedID := types.NewID()
	svc, _ := newBedService(&fakeBedBackend{}, newFakeDirectory(), Bed{ID: bedID, Status: StatusAvailable})

	err := svc.Assign(context.Background(), bedID, types.NewID())
	if err == nil {
		t.Fatal("expected not found error")
	}
}

func TestReleaseWritesAvailableNotCleaning(t *testing.T) {
	bedID := types.NewID()
	patientID := types.NewID()
	backend := &fakeBedBackend{}
	dir := newFakeDirectory()
	now := types.Now()
	svc, store := newBedService(backend, dir, Bed{
		ID: bedID, Status: StatusOccupied,
		Patient:    &Occupant{ID: patientID, Name: "Ana Petrova"},
		AssignedAt: &now,
	})

	if err := svc.Release(context.Background(), bedID); err != nil {
		t.Fatalf("Release: %v", err)
	}

	got, _ := store.Get(bedID)
	// The backend moves the bed through cleaning; the optimistic write only
	// ever shows available and lets the next poll surface the turnaround.
	if got.Status != StatusAvailable {
		t.Errorf("status = %s, want available", got.Status)
	}
	if got.Patient != nil || got.AssignedAt != nil {
		t.Errorf("occupant not cleared: %+v", got)
	}
	if bound, ok := dir.binds[patientID]; !ok || bound != nil {
		t.Error("patient bed reference not cleared")
	}
}

func TestReleaseFailureRollsBackBed(t *testing.T) {
	bedID := types.NewID()
	now := types.Now()
	before := Bed{
		ID: bedID, BedNumber: "ICU-01", Status: StatusOccupied,
		Features:   []string{"ventilator", "monitor"},
		Patient:    &Occupant{ID: types.NewID(), Name: "Ana Petrova"},
		AssignedAt: &now,
	}
	backend := &fakeBedBackend{fail: errors.FromStatus(500, "")}
	svc, store := newBedService(backend, newFakeDirectory(), before)

	if err := svc.Release(context.Background(), bedID); err == nil {
		t.Fatal("expected error")
	}

	after, _ := store.Get(bedID)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("rollback not verbatim:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestAvailableFilter(t *testing.T) {
	svc, _ := newBedService(&fakeBedBackend{}, newFakeDirectory(),
		Bed{ID: types.NewID(), BedNumber: "ED-01", Department: "Emergency", Status: StatusAvailable},
		Bed{ID: types.NewID(), BedNumber: "ED-02", Department: "Emergency", Status: StatusCleaning},
		Bed{ID: types.NewID(), BedNumber: "IC-01", Department: "ICU", Status: StatusAvailable},
	)

	if got := len(svc.Available("")); got != 2 {
		t.Errorf("Available(all) = %d beds, want 2", got)
	}
	if got := svc.Available("Emergency"); len(got) != 1 || got[0].BedNumber != "ED-01" {
		t.Errorf("Available(Emergency) = %v", got)
	}
}
