package api

import (
	"context"
	"fmt"

	"github.com/carepoint/engine/internal/alerts"
	"github.com/carepoint/engine/internal/beds"
	"github.com/carepoint/engine/internal/catalog"
	"github.com/carepoint/engine/internal/patients"
	"github.com/carepoint/engine/internal/shared/types"
	"github.com/carepoint/engine/internal/triage"
)

// --- Patients ---

// ListPatients fetches the active patient listing
func (c *Client) ListPatients(ctx context.Context) ([]patients.Patient, error) {
	var out []patients.Patient
	err := c.get(ctx, "patients.list", "/api/patients", &out)
	return out, err
}

// GetPatient fetches one patient record
func (c *Client) GetPatient(ctx context.Context, id types.ID) (patients.Patient, error) {
	var out patients.Patient
	err := c.get(ctx, "patients.get", fmt.Sprintf("/api/patients/%s", id), &out)
	return out, err
}

// DischargePatient discharges a patient
func (c *Client) DischargePatient(ctx context.Context, id types.ID, req patients.DischargeRequest) error {
	return c.post(ctx, "patients.discharge", fmt.Sprintf("/api/patients/%s/discharge", id), req, nil)
}

// TransferToOPD transfers an eligible patient to the outpatient department
func (c *Client) TransferToOPD(ctx context.Context, id types.ID) error {
	return c.post(ctx, "patients.transfer_opd", fmt.Sprintf("/api/patients/%s/transfer-to-opd", id), nil, nil)
}

// RecommendTriageShift asks the AI advisor for a staged recommendation.
// Nothing is applied; the caller decides whether to submit a shift.
func (c *Client) RecommendTriageShift(ctx context.Context, id types.ID, sc triage.ShiftContext) (triage.Recommendation, error) {
	var out triage.Recommendation
	err := c.post(ctx, "patients.recommend_shift", fmt.Sprintf("/api/patients/%s/recommend-triage-shift", id), sc, &out)
	return out, err
}

// ShiftTriage applies a triage shift, returning the appended timeline event
func (c *Client) ShiftTriage(ctx context.Context, id types.ID, req triage.ShiftRequest) (triage.Event, error) {
	var out triage.Event
	err := c.post(ctx, "patients.shift_triage", fmt.Sprintf("/api/patients/%s/shift-triage", id), req, &out)
	return out, err
}

// TriageTimeline fetches a patient's triage history, most recent first
func (c *Client) TriageTimeline(ctx context.Context, id types.ID) (triage.Timeline, error) {
	var out triage.Timeline
	err := c.get(ctx, "patients.timeline", fmt.Sprintf("/api/patients/%s/triage-timeline", id), &out)
	return out, err
}

// --- Vitals ---

// ListVitals fetches a patient's vital-sign history
func (c *Client) ListVitals(ctx context.Context, id types.ID) ([]patients.VitalsRecord, error) {
	var out []patients.VitalsRecord
	err := c.get(ctx, "vitals.list", fmt.Sprintf("/api/patients/%s/vitals", id), &out)
	return out, err
}

// AddVitals records a vital-signs measurement
func (c *Client) AddVitals(ctx context.Context, id types.ID, rec patients.VitalsRecord) (patients.VitalsRecord, error) {
	var out patients.VitalsRecord
	err := c.post(ctx, "vitals.add", fmt.Sprintf("/api/patients/%s/vitals", id), rec, &out)
	return out, err
}

// --- Notes ---

// ListNotes fetches a patient's clinical notes
func (c *Client) ListNotes(ctx context.Context, id types.ID) ([]patients.Note, error) {
	var out []patients.Note
	err := c.get(ctx, "notes.list", fmt.Sprintf("/api/patients/%s/notes", id), &out)
	return out, err
}

// AddNote appends a clinical note
func (c *Client) AddNote(ctx context.Context, id types.ID, note patients.Note) (patients.Note, error) {
	var out patients.Note
	err := c.post(ctx, "notes.add", fmt.Sprintf("/api/patients/%s/notes", id), note, &out)
	return out, err
}

// --- Prescriptions ---

// ListPrescriptions fetches a patient's prescriptions
func (c *Client) ListPrescriptions(ctx context.Context, id types.ID) ([]patients.Prescription, error) {
	var out []patients.Prescription
	err := c.get(ctx, "prescriptions.list", fmt.Sprintf("/api/patients/%s/prescriptions", id), &out)
	return out, err
}

// SubmitPrescriptions submits staged prescription lines in one call
func (c *Client) SubmitPrescriptions(ctx context.Context, id types.ID, lines []patients.PrescriptionLine) ([]patients.Prescription, error) {
	var out []patients.Prescription
	body := map[string]any{"prescriptions": lines}
	err := c.post(ctx, "prescriptions.add", fmt.Sprintf("/api/patients/%s/prescriptions", id), body, &out)
	return out, err
}

// DiscontinuePrescription discontinues one prescription
func (c *Client) DiscontinuePrescription(ctx context.Context, patientID, rxID types.ID) error {
	return c.put(ctx, "prescriptions.discontinue",
		fmt.Sprintf("/api/patients/%s/prescriptions/%s/discontinue", patientID, rxID), nil, nil)
}

// --- Beds ---

// ListBeds fetches the full bed board
func (c *Client) ListBeds(ctx context.Context) ([]beds.Bed, error) {
	var out []beds.Bed
	err := c.get(ctx, "beds.list", "/api/beds", &out)
	return out, err
}

// AssignBed assigns a patient to a bed
func (c *Client) AssignBed(ctx context.Context, bedID, patientID types.ID) error {
	body := map[string]string{"patient_id": patientID.String()}
	return c.post(ctx, "beds.assign", fmt.Sprintf("/api/beds/%s/assign", bedID), body, nil)
}

// ReleaseBed releases a bed; the backend moves it to its cleaning turnaround
func (c *Client) ReleaseBed(ctx context.Context, bedID types.ID) error {
	return c.post(ctx, "beds.release", fmt.Sprintf("/api/beds/%s/release", bedID), nil, nil)
}

// --- Alerts ---

// ListAlerts fetches all alerts visible to the session
func (c *Client) ListAlerts(ctx context.Context) ([]alerts.Alert, error) {
	var out []alerts.Alert
	err := c.get(ctx, "alerts.list", "/api/alerts", &out)
	return out, err
}

// MarkAlertRead marks an alert read
func (c *Client) MarkAlertRead(ctx context.Context, id types.ID) error {
	return c.put(ctx, "alerts.read", fmt.Sprintf("/api/alerts/%s/read", id), nil, nil)
}

// AcknowledgeAlert acknowledges an alert
func (c *Client) AcknowledgeAlert(ctx context.Context, id types.ID) error {
	return c.put(ctx, "alerts.acknowledge", fmt.Sprintf("/api/alerts/%s/acknowledge", id), nil, nil)
}

// ResolveAlert resolves an alert with a resolution text
func (c *Client) ResolveAlert(ctx context.Context, id types.ID, resolution string) error {
	body := map[string]string{"resolution": resolution}
	return c.put(ctx, "alerts.resolve", fmt.Sprintf("/api/alerts/%s/resolve", id), body, nil)
}

// DismissAlert dismisses an alert
func (c *Client) DismissAlert(ctx context.Context, id types.ID) error {
	return c.delete(ctx, "alerts.dismiss", fmt.Sprintf("/api/alerts/%s", id))
}

// --- Medications ---

// SearchMedications queries the medication registry. An empty query returns
// the preload catalog.
func (c *Client) SearchMedications(ctx context.Context, query string, limit int) ([]catalog.Entry, error) {
	var out []catalog.Entry
	err := c.get(ctx, "medications.search", "/api/medications/search"+searchQuery(query, limit), &out)
	return out, err
}
