// Package ehr reads transcripts and patient records from the hosting clinical system.
package ehr

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultTranscriptLimit = 50
	MaxTranscriptLimit     = 100
)

var ErrPatientNotFound = errors.New("patient not found")

type TranscriptEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Speaker   string `json:"speaker,omitempty"`
}

type Transcript struct {
	Transcript []TranscriptEntry `json:"transcript"`
	SessionID  string            `json:"sessionId"`
}

type Demographics struct {
	Age    int    `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
}

type Observation struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
	Unit      string `json:"unit,omitempty"`
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	StartDate string `json:"startDate,omitempty"`
}

type PatientData struct {
	PatientID    string        `json:"patientId"`
	Demographics *Demographics `json:"demographics,omitempty"`
	Vitals       []Observation `json:"vitals,omitempty"`
	Medications  []Medication  `json:"medications,omitempty"`
	Labs         []Observation `json:"labs,omitempty"`
}

type Provider interface {
	Transcript(ctx context.Context, sessionID string, limit int) (*Transcript, error)
	PatientData(ctx context.Context, patientID string, includeHistory bool) (*PatientData, error)
}

// NewProvider talks to baseURL when set and serves demo data otherwise.
func NewProvider(baseURL, apiKey string, timeout time.Duration) Provider {
	if baseURL == "" {
		return NewDemoProvider(time.Now)
	}
	return NewHTTPProvider(baseURL, apiKey, timeout)
}

// ClampLimit maps a requested limit into 1..MaxTranscriptLimit, defaulting when unset.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultTranscriptLimit
	case limit > MaxTranscriptLimit:
		return MaxTranscriptLimit
	default:
		return limit
	}
}
