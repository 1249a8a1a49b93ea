package patients

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/carepoint/engine/internal/advisor"
	"github.com/carepoint/engine/internal/beds"
	"github.com/carepoint/engine/internal/cache"
	"github.com/carepoint/engine/internal/shared/config"
	"github.com/carepoint/engine/internal/shared/errors"
	"github.com/carepoint/engine/internal/shared/events"
	"github.com/carepoint/engine/internal/shared/types"
	"github.com/carepoint/engine/internal/triage"
)

// Backend is the slice of the REST client the patient service needs
type Backend interface {
	ListPatients(ctx context.Context) ([]Patient, error)
	GetPatient(ctx context.Context, id types.ID) (Patient, error)
	DischargePatient(ctx context.Context, id types.ID, req DischargeRequest) error
	TransferToOPD(ctx context.Context, id types.ID) error
	RecommendTriageShift(ctx context.Context, id types.ID, sc triage.ShiftContext) (triage.Recommendation, error)
	ShiftTriage(ctx context.Context, id types.ID, req triage.ShiftRequest) (triage.Event, error)
	TriageTimeline(ctx context.Context, id types.ID) (triage.Timeline, error)
	ListVitals(ctx context.Context, id types.ID) ([]VitalsRecord, error)
	AddVitals(ctx context.Context, id types.ID, rec VitalsRecord) (VitalsRecord, error)
	ListNotes(ctx context.Context, id types.ID) ([]Note, error)
	AddNote(ctx context.Context, id types.ID, note Note) (Note, error)
	ListPrescriptions(ctx context.Context, id types.ID) ([]Prescription, error)
	SubmitPrescriptions(ctx context.Context, id types.ID, lines []PrescriptionLine) ([]Prescription, error)
	DiscontinuePrescription(ctx context.Context, patientID, rxID types.ID) error
}

// Service owns the patient cache, the per-patient sub-resource caches and
// every patient-scoped mutation. Sub-resources (timeline, vitals, notes,
// prescriptions) are fetched on first access and dropped after any mutation
// that touches them.
type Service struct {
	store    *cache.Store[Patient]
	bedStore *cache.Store[beds.Bed]
	coord    *cache.Coordinator
	backend  Backend
	bus      *events.Bus
	limiter  *triage.ShiftLimiter
	retained *cache.Retained[Patient]

	generics func(name string) string

	timeline      *cache.Demand[triage.Timeline]
	vitals        *cache.Demand[[]VitalsRecord]
	notes         *cache.Demand[[]Note]
	prescriptions *cache.Demand[[]Prescription]

	log zerolog.Logger
}

// NewService creates the patient service
func NewService(store *cache.Store[Patient], bedStore *cache.Store[beds.Bed], coord *cache.Coordinator, backend Backend, bus *events.Bus, cfg config.TriageConfig, log zerolog.Logger) *Service {
	s := &Service{
		store:    store,
		bedStore: bedStore,
		coord:    coord,
		backend:  backend,
		bus:      bus,
		limiter:  triage.NewShiftLimiter(cfg.ShiftCooldown, cfg.ShiftBurst),
		retained: cache.NewRetained(store),
		log:      log.With().Str("component", "patients").Logger(),
	}
	s.timeline = cache.NewDemand("triage_timeline", backend.TriageTimeline)
	s.vitals = cache.NewDemand("vitals", backend.ListVitals)
	s.notes = cache.NewDemand("notes", backend.ListNotes)
	s.prescriptions = cache.NewDemand("prescriptions", backend.ListPrescriptions)
	return s
}

// Store exposes the cache store for poller wiring
func (s *Service) Store() *cache.Store[Patient] {
	return s.store
}

// FetchAll is the poller fetch function for the patient listing
func (s *Service) FetchAll(ctx context.Context) ([]Patient, error) {
	return s.backend.ListPatients(ctx)
}

// List returns the active listing: terminal statuses are filtered out,
// most acute first, oldest arrival within a level.
func (s *Service) List() []Patient {
	all := s.store.List()
	out := all[:0]
	for _, p := range all {
		if !p.Status.Terminal() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Priority, out[j].Priority
		// Untriaged sorts after every assigned level.
		if pi == triage.LevelPending {
			pi = triage.LevelNonUrgent + 1
		}
		if pj == triage.LevelPending {
			pj = triage.LevelNonUrgent + 1
		}
		if pi != pj {
			return pi < pj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt.Time)
	})
	return out
}

// Get returns the cached patient record
func (s *Service) Get(id types.ID) (Patient, bool) {
	return s.store.Get(id)
}

// Select opens the detail view for a patient, arming snapshot retention
func (s *Service) Select(id types.ID) {
	s.retained.Select(id)
}

// CloseDetail closes the detail view and drops the retained snapshot
func (s *Service) CloseDetail() {
	s.retained.Close()
}

// Detail returns the selected patient: the live record while it exists,
// the retained snapshot after a discharge or transfer removed it.
func (s *Service) Detail() (Patient, bool) {
	return s.retained.Current()
}

// --- Sub-resources ---

// Timeline returns the patient's triage history, fetching on first access
func (s *Service) Timeline(ctx context.Context, id types.ID) (triage.Timeline, error) {
	return s.timeline.Get(ctx, id)
}

// Vitals returns the patient's vital-sign history
func (s *Service) Vitals(ctx context.Context, id types.ID) ([]VitalsRecord, error) {
	return s.vitals.Get(ctx, id)
}

// Notes returns the patient's clinical notes
func (s *Service) Notes(ctx context.Context, id types.ID) ([]Note, error) {
	return s.notes.Get(ctx, id)
}

// Prescriptions returns the patient's prescriptions
func (s *Service) Prescriptions(ctx context.Context, id types.ID) ([]Prescription, error) {
	return s.prescriptions.Get(ctx, id)
}

// --- PatientDirectory (bed service wiring) ---

// PatientName resolves a patient's display name
func (s *Service) PatientName(id types.ID) (string, bool) {
	p, ok := s.store.Get(id)
	if !ok {
		return "", false
	}
	return p.Name, true
}

// SetPatientBed rebinds the patient's bed reference during a bed mutation
func (s *Service) SetPatientBed(ctx context.Context, patientID types.ID, bedID *types.ID) {
	s.store.Update(ctx, patientID, func(p Patient) Patient {
		p.BedID = bedID
		return p
	})
}

// PatientStore exposes the store as a mutation target
func (s *Service) PatientStore() cache.Target {
	return s.store
}

// --- Mutations ---

// AddVitals records a measurement. The critical flag is computed from the
// thresholds, never trusted from the caller; a critical reading raises a
// bus event for the alert surface.
func (s *Service) AddVitals(ctx context.Context, id types.ID, rec VitalsRecord) error {
	if _, ok := s.store.Get(id); !ok {
		return errors.NotFound("patient", id.String())
	}
	rec.PatientID = id
	rec.IsCritical = rec.Critical()
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = types.Now()
	}

	err := s.coord.Run(ctx, cache.Mutation{
		Name:   "patient.add_vitals",
		Stores: []cache.Target{s.vitals},
		Validate: func() error {
			if rec.HeartRate == nil && rec.SpO2 == nil && rec.BPSystolic == nil &&
				rec.Temperature == nil && rec.RespiratoryRate == nil && rec.PainLevel == nil {
				return errors.Validation("at least one measurement is required", nil)
			}
			return nil
		},
		Apply: func(ctx context.Context) {
			if existing, ok := s.vitals.Peek(id); ok {
				s.vitals.Put(id, append([]VitalsRecord{rec}, existing...))
			}
		},
		Call: func(ctx context.Context) error {
			_, err := s.backend.AddVitals(ctx, id, rec)
			return err
		},
	})
	if err == nil && rec.IsCritical {
		s.bus.Publish(ctx, events.NewEvent("vitals.critical", "patients", map[string]any{
			"patientId": id.String(),
		}))
	}
	return err
}

// AddNote appends a clinical note
func (s *Service) AddNote(ctx context.Context, id types.ID, note Note) error {
	if _, ok := s.store.Get(id); !ok {
		return errors.NotFound("patient", id.String())
	}
	note.PatientID = id
	if note.CreatedAt.IsZero() {
		note.CreatedAt = types.Now()
	}
	if note.NoteType == "" {
		note.NoteType = NoteNurse
	}

	return s.coord.Run(ctx, cache.Mutation{
		Name:   "patient.add_note",
		Stores: []cache.Target{s.notes},
		Validate: func() error {
			if strings.TrimSpace(note.Content) == "" {
				return errors.Validation("note content is required", map[string]string{"content": "required"})
			}
			return nil
		},
		Apply: func(ctx context.Context) {
			if existing, ok := s.notes.Peek(id); ok {
				s.notes.Put(id, append([]Note{note}, existing...))
			}
		},
		Call: func(ctx context.Context) error {
			_, err := s.backend.AddNote(ctx, id, note)
			return err
		},
	})
}

// UseGenericResolver supplies a brand-to-generic lookup for interaction
// checks, usually the medication catalog.
func (s *Service) UseGenericResolver(fn func(name string) string) {
	s.generics = fn
}

// CheckInteractions runs the pairwise interaction rules over staged lines.
// Purely advisory: prescribing proceeds regardless of warnings.
func (s *Service) CheckInteractions(lines []PrescriptionLine) []advisor.Warning {
	meds := make([]advisor.Medication, 0, len(lines))
	for _, l := range lines {
		m := advisor.Medication{Name: l.MedicationName}
		if s.generics != nil {
			m.GenericName = s.generics(l.MedicationName)
		}
		meds = append(meds, m)
	}
	return advisor.Check(meds)
}

// SubmitPrescriptions submits staged lines in one call
func (s *Service) SubmitPrescriptions(ctx context.Context, id types.ID, lines []PrescriptionLine) error {
	if _, ok := s.store.Get(id); !ok {
		return errors.NotFound("patient", id.String())
	}

	return s.coord.Run(ctx, cache.Mutation{
		Name:   "patient.prescribe",
		Stores: []cache.Target{s.prescriptions},
		Validate: func() error {
			return validateLines(lines)
		},
		Apply: func(ctx context.Context) {
			existing, ok := s.prescriptions.Peek(id)
			if !ok {
				return
			}
			staged := make([]Prescription, 0, len(lines))
			for _, l := range lines {
				staged = append(staged, Prescription{
					PatientID:      id,
					MedicationName: l.MedicationName,
					Dosage:         l.Dosage,
					Frequency:      l.Frequency,
					Duration:       l.Duration,
					Instructions:   l.Instructions,
					Status:         "active",
					PrescribedAt:   types.Now(),
				})
			}
			s.prescriptions.Put(id, append(staged, existing...))
		},
		Call: func(ctx context.Context) error {
			_, err := s.backend.SubmitPrescriptions(ctx, id, lines)
			return err
		},
	})
}

// DiscontinuePrescription discontinues one prescription
func (s *Service) DiscontinuePrescription(ctx context.Context, patientID, rxID types.ID) error {
	return s.coord.Run(ctx, cache.Mutation{
		Name:   "patient.discontinue_rx",
		Stores: []cache.Target{s.prescriptions},
		Apply: func(ctx context.Context) {
			existing, ok := s.prescriptions.Peek(patientID)
			if !ok {
				return
			}
			next := make([]Prescription, len(existing))
			copy(next, existing)
			for i := range next {
				if next[i].ID == rxID {
					next[i].Status = "discontinued"
				}
			}
			s.prescriptions.Put(patientID, next)
		},
		Call: func(ctx context.Context) error {
			return s.backend.DiscontinuePrescription(ctx, patientID, rxID)
		},
	})
}

// Discharge discharges a patient, freeing their bed and removing them from
// the active listing. The retained snapshot keeps an open detail view alive.
func (s *Service) Discharge(ctx context.Context, id types.ID, req DischargeRequest) error {
	patient, ok := s.store.Get(id)
	if !ok {
		return errors.NotFound("patient", id.String())
	}

	return s.coord.Run(ctx, cache.Mutation{
		Name:   "patient.discharge",
		Stores: []cache.Target{s.store, s.bedStore},
		Validate: func() error {
			if strings.TrimSpace(req.DischargeNotes) == "" {
				return errors.Validation("discharge notes are required", map[string]string{"discharge_notes": "required"})
			}
			if err := validateLines(req.Prescriptions); err != nil {
				return err
			}
			if !triage.CanDischarge(patient.Status) {
				return errors.Legality("patient cannot be discharged from status " + string(patient.Status))
			}
			return nil
		},
		Apply: func(ctx context.Context) {
			s.removeFromListing(ctx, patient, triage.StatusDischarged, req.DischargeNotes)
		},
		Call: func(ctx context.Context) error {
			return s.backend.DischargePatient(ctx, id, req)
		},
	})
}

// TransferToOPD moves a downgraded patient to the outpatient department.
// Eligibility requires the triage timeline, so it is fetched before the
// mutation protocol starts.
func (s *Service) TransferToOPD(ctx context.Context, id types.ID) error {
	patient, ok := s.store.Get(id)
	if !ok {
		return errors.NotFound("patient", id.String())
	}
	timeline, err := s.timeline.Get(ctx, id)
	if err != nil {
		return errors.Wrap(err, "load triage timeline")
	}
	level := timeline.CurrentLevel(patient.Priority)

	return s.coord.Run(ctx, cache.Mutation{
		Name:   "patient.transfer_opd",
		Stores: []cache.Target{s.store, s.bedStore},
		Validate: func() error {
			if !triage.EligibleForOPDTransfer(patient.Status, level, timeline) {
				return errors.Legality("patient is not eligible for outpatient transfer")
			}
			return nil
		},
		Apply: func(ctx context.Context) {
			s.removeFromListing(ctx, patient, triage.StatusTransferredToOPD, "")
		},
		Call: func(ctx context.Context) error {
			return s.backend.TransferToOPD(ctx, id)
		},
	})
}

// removeFromListing applies the shared terminal-status write: mark the
// record, refresh the retained snapshot so an open detail view survives,
// drop the record from the listing, free the bed.
func (s *Service) removeFromListing(ctx context.Context, patient Patient, status triage.Status, dischargeNotes string) {
	id := patient.ID
	s.store.Update(ctx, id, func(p Patient) Patient {
		now := types.Now()
		p.Status = status
		if status == triage.StatusDischarged {
			p.DischargedAt = &now
			p.DischargeNotes = dischargeNotes
		}
		p.BedID = nil
		return p
	})
	if sel, ok := s.retained.Selected(); ok && sel == id {
		s.retained.Current()
	}
	s.store.Remove(ctx, id)

	if patient.BedID != nil {
		s.bedStore.Update(ctx, *patient.BedID, func(b beds.Bed) beds.Bed {
			b.Status = beds.StatusAvailable
			b.Patient = nil
			b.AssignedAt = nil
			return b
		})
	}
}

// --- Triage ---

// RecommendShift asks the advisor for a staged recommendation. Read-only:
// nothing changes until the clinician submits the shift.
func (s *Service) RecommendShift(ctx context.Context, id types.ID, sc triage.ShiftContext) (triage.Recommendation, error) {
	if _, ok := s.store.Get(id); !ok {
		return triage.Recommendation{}, errors.NotFound("patient", id.String())
	}
	switch sc.ConditionChange {
	case triage.ConditionImproved, triage.ConditionStable, triage.ConditionDeteriorated:
	default:
		return triage.Recommendation{}, errors.Validation("invalid condition change", map[string]string{
			"conditionChange": "must be improved, stable or deteriorated",
		})
	}
	return s.backend.RecommendTriageShift(ctx, id, sc)
}

// ShiftTriage applies a triage shift. The optimistic write updates the
// denormalized priority and, when the timeline is cached, prepends the
// event. A downgrade into level 3 or 4 raises an advisory bus event.
func (s *Service) ShiftTriage(ctx context.Context, id types.ID, req triage.ShiftRequest) (triage.Event, error) {
	patient, ok := s.store.Get(id)
	if !ok {
		return triage.Event{}, errors.NotFound("patient", id.String())
	}

	var applied triage.Event
	err := s.coord.Run(ctx, cache.Mutation{
		Name:   "patient.shift_triage",
		Stores: []cache.Target{s.store, s.timeline},
		Validate: func() error {
			if strings.TrimSpace(req.Reasoning) == "" {
				return errors.Validation("reasoning is required", map[string]string{"reasoning": "required"})
			}
			if err := triage.ValidateShift(patient.Status, req.Priority); err != nil {
				return err
			}
			if !s.limiter.Allow(id) {
				return errors.Legality("triage shifts for this patient are rate limited, try again shortly")
			}
			return nil
		},
		Apply: func(ctx context.Context) {
			from := patient.Priority
			s.store.Update(ctx, id, func(p Patient) Patient {
				p.Priority = req.Priority
				p.PriorityLabel = req.Priority.Label()
				p.PriorityColor = req.Priority.Color()
				return p
			})
			if timeline, ok := s.timeline.Peek(id); ok {
				ev := triage.Event{
					ToPriority:        req.Priority,
					PriorityLabel:     req.Priority.Label(),
					PriorityColor:     req.Priority.Color(),
					Reasoning:         req.Reasoning,
					Recommendations:   req.Recommendations,
					Confidence:        req.Confidence,
					EstimatedWaitTime: req.EstimatedWaitTime,
					Source:            triage.SourceManual,
					AppliedAt:         types.Now(),
				}
				if from.Valid() {
					f := from
					ev.FromPriority = &f
				}
				s.timeline.Put(id, append(triage.Timeline{ev}, timeline...))
			}
		},
		Call: func(ctx context.Context) error {
			ev, err := s.backend.ShiftTriage(ctx, id, req)
			if err != nil {
				return err
			}
			applied = ev
			return nil
		},
	})
	if err != nil {
		return triage.Event{}, err
	}

	if msg, ok := triage.DowngradeAdvisory(patient.Priority, req.Priority); ok {
		s.bus.Publish(ctx, events.NewEvent("triage.downgrade", "patients", map[string]any{
			"patientId": id.String(),
			"advisory":  msg,
		}))
	}
	return applied, nil
}

// validateLines checks staged prescription lines before submission
func validateLines(lines []PrescriptionLine) error {
	for i, l := range lines {
		if strings.TrimSpace(l.MedicationName) == "" {
			return errors.Validation("medication name is required", map[string]string{"line": strconv.Itoa(i)})
		}
		if strings.TrimSpace(l.Dosage) == "" || strings.TrimSpace(l.Frequency) == "" || strings.TrimSpace(l.Duration) == "" {
			return errors.Validation("dosage, frequency and duration are required for "+l.MedicationName, nil)
		}
	}
	return nil
}
