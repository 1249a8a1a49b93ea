package patients

import (
	"github.com/carepoint/engine/internal/shared/types"
	"github.com/carepoint/engine/internal/triage"
)

// Patient is the cached projection of a patient record. The server owns
// the record; the engine holds the last confirmed copy plus, transiently,
// optimistic deltas.
type Patient struct {
	ID          types.ID `json:"id"`
	PatientCode string   `json:"patientId"`
	Name        string   `json:"name"`
	Age         *int     `json:"age"`
	Gender      string   `json:"gender,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	BloodGroup  string   `json:"bloodGroup,omitempty"`

	Complaint string `json:"complaint,omitempty"`
	History   string `json:"history,omitempty"`

	Status triage.Status `json:"status"`
	// Priority fields are denormalized from the latest triage event. The
	// timeline projection wins whenever the two disagree.
	Priority      triage.Level `json:"priority"`
	PriorityLabel string       `json:"priorityLabel,omitempty"`
	PriorityColor string       `json:"priorityColor,omitempty"`

	Department       string    `json:"department,omitempty"`
	BedID            *types.ID `json:"bedId"`
	AssignedDoctorID *types.ID `json:"assignedDoctorId"`
	AssignedNurseID  *types.ID `json:"assignedNurseId"`

	AdmittedAt     *types.Time `json:"admittedAt,omitempty"`
	DischargedAt   *types.Time `json:"dischargedAt,omitempty"`
	DischargeNotes string      `json:"dischargeNotes,omitempty"`
	FollowUpDate   string      `json:"followUpDate,omitempty"`

	CreatedAt types.Time `json:"createdAt"`
}

// EntityID implements cache.Entity
func (p Patient) EntityID() types.ID {
	return p.ID
}

// Clone implements cache.Entity with a deep copy
func (p Patient) Clone() Patient {
	c := p
	c.Age = cloneInt(p.Age)
	c.BedID = cloneID(p.BedID)
	c.AssignedDoctorID = cloneID(p.AssignedDoctorID)
	c.AssignedNurseID = cloneID(p.AssignedNurseID)
	c.AdmittedAt = cloneTime(p.AdmittedAt)
	c.DischargedAt = cloneTime(p.DischargedAt)
	return c
}

// CurrentTriage projects the authoritative triage view: latest timeline
// event if one exists, otherwise the denormalized patient fields.
func (p Patient) CurrentTriage(timeline triage.Timeline) (triage.Level, string) {
	return timeline.CurrentLevel(p.Priority), timeline.CurrentReasoning(p.PriorityLabel)
}

// VitalsRecord is one vital-signs measurement
type VitalsRecord struct {
	ID              types.ID   `json:"id"`
	PatientID       types.ID   `json:"patientId"`
	HeartRate       *int       `json:"heartRate"`
	BPSystolic      *int       `json:"bloodPressureSystolic"`
	BPDiastolic     *int       `json:"bloodPressureDiastolic"`
	BloodPressure   string     `json:"bloodPressure,omitempty"`
	SpO2            *float64   `json:"spo2"`
	Temperature     *float64   `json:"temperature"`
	RespiratoryRate *int       `json:"respiratoryRate"`
	PainLevel       *int       `json:"painLevel"`
	Notes           string     `json:"notes,omitempty"`
	IsCritical      bool       `json:"isCritical"`
	Source          string     `json:"source,omitempty"`
	RecordedAt      types.Time `json:"recordedAt"`
}

// Critical vital-sign thresholds, matching the backend's alerting rules.
// Temperature is Fahrenheit.
const (
	criticalHRLow       = 50
	criticalHRHigh      = 150
	criticalSpO2        = 90
	criticalSystolicLow = 90
	criticalSystolicHi  = 180
	criticalTempLow     = 95.0
	criticalTempHigh    = 104.0
)

// Critical reports whether any measured value crosses a critical threshold
func (v VitalsRecord) Critical() bool {
	if v.HeartRate != nil && (*v.HeartRate < criticalHRLow || *v.HeartRate > criticalHRHigh) {
		return true
	}
	if v.SpO2 != nil && *v.SpO2 < criticalSpO2 {
		return true
	}
	if v.BPSystolic != nil && (*v.BPSystolic < criticalSystolicLow || *v.BPSystolic > criticalSystolicHi) {
		return true
	}
	if v.Temperature != nil && (*v.Temperature < criticalTempLow || *v.Temperature > criticalTempHigh) {
		return true
	}
	return false
}

// NoteType classifies a clinical note
type NoteType string

const (
	NoteNurse     NoteType = "nurse"
	NoteDoctor    NoteType = "doctor"
	NoteAdmin     NoteType = "admin"
	NoteSystem    NoteType = "system"
	NoteDischarge NoteType = "discharge"
)

// Note is one clinical note on a patient
type Note struct {
	ID             types.ID   `json:"id"`
	PatientID      types.ID   `json:"patientId"`
	NoteType       NoteType   `json:"noteType"`
	Content        string     `json:"content"`
	IsConfidential bool       `json:"isConfidential"`
	CreatedBy      string     `json:"createdBy,omitempty"`
	CreatedAt      types.Time `json:"createdAt"`
}

// Prescription is a persisted prescription as the backend returns it
type Prescription struct {
	ID             types.ID   `json:"id"`
	PatientID      types.ID   `json:"patientId"`
	MedicationName string     `json:"medicationName"`
	Dosage         string     `json:"dosage"`
	Frequency      string     `json:"frequency"`
	Duration       string     `json:"duration"`
	Instructions   string     `json:"instructions,omitempty"`
	Status         string     `json:"status"`
	PrescribedAt   types.Time `json:"prescribedAt"`
}

// DischargeRequest is the discharge payload. Prescriptions staged in the
// discharge dialog ride along in the same call.
type DischargeRequest struct {
	DischargeNotes string             `json:"discharge_notes"`
	FollowUpDate   string             `json:"follow_up_date,omitempty"`
	Prescriptions  []PrescriptionLine `json:"prescriptions,omitempty"`
}

// PrescriptionLine is a value object staged client-side before submission
type PrescriptionLine struct {
	MedicationName string `json:"medication"`
	Dosage         string `json:"dosage"`
	Frequency      string `json:"frequency"`
	Duration       string `json:"duration"`
	Instructions   string `json:"instructions,omitempty"`
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneID(v *types.ID) *types.ID {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *types.Time) *types.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
