package entity

import (
	"time"

	"temporalos-be/pkg/medication"
)

type MedicationLog struct {
	LogId       string
	SessionId   string
	PatientId   string
	Medication  string
	Dosage      string
	Route       string
	Frequency   string
	StartDate   string
	ConfirmedBy string
	Analysis    *medication.Analysis
	CreatedAt   time.Time
}

func (l *MedicationLog) ToDomain() medication.Log {
	return medication.Log{
		LogID:       l.LogId,
		SessionID:   l.SessionId,
		PatientID:   l.PatientId,
		Medication:  l.Medication,
		Dosage:      l.Dosage,
		Route:       l.Route,
		Frequency:   l.Frequency,
		StartDate:   l.StartDate,
		ConfirmedBy: l.ConfirmedBy,
		Analysis:    l.Analysis,
		CreatedAt:   l.CreatedAt,
	}
}
