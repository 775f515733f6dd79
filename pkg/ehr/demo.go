package ehr

import (
	"context"
	"time"
)

const demoSessionID = "mock-session-123"

type DemoProvider struct {
	now func() time.Time
}

func NewDemoProvider(now func() time.Time) *DemoProvider {
	return &DemoProvider{now: now}
}

func (d *DemoProvider) Transcript(_ context.Context, sessionID string, limit int) (*Transcript, error) {
	now := d.now().UnixMilli()
	entries := []TranscriptEntry{
		{ID: "1", Text: "Patient reports chest pain that started yesterday.", Timestamp: now - time.Hour.Milliseconds(), Speaker: "patient"},
		{ID: "2", Text: "Let me check the EKG results from this morning.", Timestamp: now - 30*time.Minute.Milliseconds(), Speaker: "clinician"},
	}
	if limit = ClampLimit(limit); len(entries) > limit {
		entries = entries[:limit]
	}
	if sessionID == "" {
		sessionID = demoSessionID
	}
	return &Transcript{Transcript: entries, SessionID: sessionID}, nil
}

func (d *DemoProvider) PatientData(_ context.Context, patientID string, _ bool) (*PatientData, error) {
	now := d.now().UnixMilli()
	hourAgo := now - time.Hour.Milliseconds()
	return &PatientData{
		PatientID:    patientID,
		Demographics: &Demographics{Age: 45, Gender: "M"},
		Vitals: []Observation{
			{Name: "Blood Pressure", Value: "140/90", Timestamp: hourAgo, Unit: "mmHg"},
			{Name: "Heart Rate", Value: "85", Timestamp: hourAgo, Unit: "bpm"},
		},
		Medications: []Medication{{Name: "Lisinopril", Dosage: "10mg", StartDate: "2024-01-15"}},
		Labs: []Observation{
			{Name: "Troponin", Value: "0.02", Timestamp: now - 2*time.Hour.Milliseconds(), Unit: "ng/mL"},
		},
	}, nil
}
