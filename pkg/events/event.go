package events

import (
	"context"
	"time"
)

const (
	TypeModeChanged             = "MODE_CHANGED"
	TypeMedicationConfirmed     = "MEDICATION_CONFIRMED"
	TypeRecommendationGenerated = "RECOMMENDATION_GENERATED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "MODE_CHANGED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Publisher delivers events to an outside bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops events. It stands in when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func NewModeChanged(sessionID, from, to, source, reason string, confidence float64, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeModeChanged,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"from":       from,
			"to":         to,
			"source":     source,
			"reason":     reason,
			"confidence": confidence,
		},
		OccurredAt: at,
	}
}

func NewMedicationConfirmed(sessionID, patientID, logID, medication, dosage string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeMedicationConfirmed,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"patient_id": patientID,
			"log_id":     logID,
			"medication": medication,
			"dosage":     dosage,
		},
		OccurredAt: at,
	}
}

func NewRecommendationGenerated(sessionID, medication, dosage, outcome string, confidence float64, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeRecommendationGenerated,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"medication": medication,
			"dosage":     dosage,
			"outcome":    outcome,
			"confidence": confidence,
		},
		OccurredAt: at,
	}
}
