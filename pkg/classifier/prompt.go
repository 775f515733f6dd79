package classifier

import (
	"encoding/json"
	"strings"

	"temporalos-be/pkg/nlp"
)

const SystemPrompt = `You are determining the cognitive mode of a clinician's interaction.

Choose one:
- PAST: They are reviewing history, scrolling past events, or asking retrospective questions.
- PRESENT: They are interpreting current data, reacting to abnormal values, or in active diagnostic reasoning.
- FUTURE: They are making decisions, generating plans, or setting follow-ups.

Output format (JSON only):
{"mode": "past" | "present" | "future", "confidence": number (0-1), "reason": string}`

// Context is the structured evidence sent alongside the transcript.
type Context struct {
	Entities      []nlp.Entity      `json:"entities,omitempty"`
	TemporalTags  []nlp.TemporalTag `json:"temporalTags,omitempty"`
	PatientData   interface{}       `json:"patientData,omitempty"`
	RecentActions []string          `json:"recentActions,omitempty"`
}

type Request struct {
	Transcript string  `json:"transcript,omitempty"`
	Context    Context `json:"context"`
}

// BuildPrompt renders the user prompt. Empty sections are omitted.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Analyze the following clinical interaction:\n\n")

	if req.Transcript != "" {
		b.WriteString("Transcript: " + req.Transcript + "\n\n")
	}
	if len(req.Context.Entities) > 0 {
		b.WriteString("Medical Entities: " + mustJSON(req.Context.Entities) + "\n\n")
	}
	if len(req.Context.TemporalTags) > 0 {
		b.WriteString("Temporal Indicators: " + mustJSON(req.Context.TemporalTags) + "\n\n")
	}
	if len(req.Context.RecentActions) > 0 {
		b.WriteString("Recent Actions: " + strings.Join(req.Context.RecentActions, ", ") + "\n\n")
	}

	b.WriteString("Determine the reasoning mode and provide your analysis.")
	return b.String()
}

func mustJSON(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(raw)
}
