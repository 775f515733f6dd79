// Package recommendation produces one structured prescription recommendation per
// FUTURE-mode entry, from a remote model when possible and from a fixed, allergy-aware
// table otherwise.
package recommendation

type Medication struct {
	Name       string `json:"name" validate:"required"`
	Dosage     string `json:"dosage" validate:"required"`
	Indication string `json:"indication,omitempty"`
}

type Lab struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value" validate:"required"`
	Unit  string `json:"unit,omitempty"`
}

// PatientContext is everything the recommender is allowed to see. Age 0 means unknown.
type PatientContext struct {
	Age                int          `json:"age,omitempty" validate:"gte=0,lte=150"`
	Gender             string       `json:"gender,omitempty"`
	CurrentMedications []Medication `json:"currentMedications,omitempty" validate:"dive"`
	Conditions         []string     `json:"conditions,omitempty"`
	Allergies          []string     `json:"allergies,omitempty"`
	Labs               []Lab        `json:"labs,omitempty" validate:"dive"`
	Transcript         string       `json:"transcript,omitempty"`
}

type SafetyChecklist struct {
	RenalDosing        bool `json:"renalDosing"`
	DrugInteractions   bool `json:"drugInteractions"`
	Allergies          bool `json:"allergies"`
	GuidelineAlignment bool `json:"guidelineAlignment"`
}

type Recommendation struct {
	Medication      string          `json:"medication"`
	Dosage          string          `json:"dosage"`
	Duration        string          `json:"duration"`
	Confidence      float64         `json:"confidence"`
	Reasoning       []string        `json:"reasoning"`
	SafetyChecklist SafetyChecklist `json:"safetyChecklist"`
	Citations       []string        `json:"citations"`
	Alternatives    []string        `json:"alternatives,omitempty"`
}

type Outcome string

const (
	OutcomeRemote   Outcome = "remote"
	OutcomeFallback Outcome = "fallback"
)
