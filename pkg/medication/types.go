// Package medication analyses confirmed medications and folds them into a knowledge graph.
package medication

import "time"

const DemoPatientID = "DEMO-PATIENT-001"

type Confirmation struct {
	SessionID   string `json:"sessionId" validate:"required"`
	PatientID   string `json:"patientId" validate:"required"`
	Medication  string `json:"medication" validate:"required"`
	Dosage      string `json:"dosage" validate:"required"`
	Route       string `json:"route,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	ConfirmedBy string `json:"confirmedBy,omitempty"`
}

type Classification struct {
	Category   string `json:"category" validate:"required"`
	Indication string `json:"indication" validate:"required"`
	Mechanism  string `json:"mechanism,omitempty"`
}

type Interaction struct {
	Medication     string `json:"medication" validate:"required"`
	Type           string `json:"type" validate:"required,oneof=contraindication major moderate minor beneficial"`
	Description    string `json:"description" validate:"required"`
	Severity       string `json:"severity" validate:"required,oneof=high medium low"`
	Recommendation string `json:"recommendation,omitempty"`
}

type Node struct {
	ID         string                 `json:"id" validate:"required"`
	Label      string                 `json:"label" validate:"required"`
	Type       string                 `json:"type" validate:"required,oneof=medication condition symptom lab interaction"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

type Edge struct {
	Source     string                 `json:"source" validate:"required"`
	Target     string                 `json:"target" validate:"required"`
	Type       string                 `json:"type" validate:"required,oneof=treats causes interacts_with monitors contraindicated_by"`
	Polarity   string                 `json:"polarity,omitempty" validate:"omitempty,oneof=positive negative neutral"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

type Analysis struct {
	Medication        string         `json:"medication,omitempty"`
	Classification    Classification `json:"classification"`
	Interactions      []Interaction  `json:"interactions" validate:"dive"`
	Contraindications []string       `json:"contraindications,omitempty"`
	Warnings          []string       `json:"warnings,omitempty"`
	Monitoring        []string       `json:"monitoring,omitempty"`
	GraphNodes        []Node         `json:"graphNodes" validate:"dive"`
	GraphEdges        []Edge         `json:"graphEdges" validate:"dive"`
}

// Log is one confirmed medication in a session.
type Log struct {
	LogID       string    `json:"logId"`
	SessionID   string    `json:"sessionId"`
	PatientID   string    `json:"patientId"`
	Medication  string    `json:"medication"`
	Dosage      string    `json:"dosage"`
	Route       string    `json:"route,omitempty"`
	Frequency   string    `json:"frequency,omitempty"`
	StartDate   string    `json:"startDate,omitempty"`
	ConfirmedBy string    `json:"confirmedBy,omitempty"`
	Analysis    *Analysis `json:"analysis,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DemoMedications seeds an empty session when the clinician first looks at history.
func DemoMedications(sessionID, patientID string) []Confirmation {
	if patientID == "" {
		patientID = DemoPatientID
	}
	meds := []struct{ name, dosage, frequency string }{
		{"Lisinopril", "10mg", "once daily"},
		{"Metformin", "500mg twice daily", "twice daily"},
		{"Atorvastatin", "20mg", "once daily"},
		{"Aspirin", "81mg", "once daily"},
	}
	out := make([]Confirmation, 0, len(meds))
	for _, m := range meds {
		out = append(out, Confirmation{
			SessionID:  sessionID,
			PatientID:  patientID,
			Medication: m.name,
			Dosage:     m.dosage,
			Route:      "oral",
			Frequency:  m.frequency,
		})
	}
	return out
}
