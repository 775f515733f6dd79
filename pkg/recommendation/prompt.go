package recommendation

import (
	"fmt"
	"strings"
)

const promptTemplate = `You are an expert clinical pharmacist planning FUTURE treatment from the patient's past history and the present clinical conversation.

PATIENT PROFILE
Age: %s
Gender: %s

CURRENT MEDICATIONS:
%s

ACTIVE CONDITIONS: %s
DOCUMENTED ALLERGIES: %s

RECENT LABS:
%s

PRESENT CLINICAL CONVERSATION:
%s

Recommend ONE medication that addresses an unmet need. It must not conflict with any allergy named in the documented allergies OR the conversation, must be checked against the current regimen for interactions, and must be dosed for the patient's renal function and age.
At least two reasoning points must quote or reference the present conversation, starting with "Based on the present conversation..." or "The patient mentioned...".
Give 5-7 reasoning points and a confidence between 0.7 and 0.95.

Return ONLY valid JSON in exactly this shape:
{
  "medication": "Medication Name",
  "dosage": "Dose and frequency",
  "duration": "Duration or 'Ongoing'",
  "confidence": 0.85,
  "reasoning": ["..."],
  "safetyChecklist": {"renalDosing": true, "drugInteractions": true, "allergies": true, "guidelineAlignment": true},
  "citations": ["Guideline or study reference"],
  "alternatives": ["Alternative medication"]
}`

func BuildPrompt(pc PatientContext) string {
	age := "Unknown"
	if pc.Age > 0 {
		age = fmt.Sprintf("%d years old", pc.Age)
	}

	meds := make([]string, 0, len(pc.CurrentMedications))
	for _, m := range pc.CurrentMedications {
		line := fmt.Sprintf("- %s %s", m.Name, m.Dosage)
		if m.Indication != "" {
			line += fmt.Sprintf(" (for %s)", m.Indication)
		}
		meds = append(meds, line)
	}

	labs := make([]string, 0, len(pc.Labs))
	for _, l := range pc.Labs {
		labs = append(labs, strings.TrimSpace(fmt.Sprintf("- %s: %s %s", l.Name, l.Value, l.Unit)))
	}

	return fmt.Sprintf(promptTemplate,
		age,
		orDefault(pc.Gender, "Unknown"),
		orDefault(strings.Join(meds, "\n"), "None documented"),
		orDefault(strings.Join(pc.Conditions, ", "), "None documented"),
		orDefault(strings.Join(pc.Allergies, ", "), "None documented"),
		orDefault(strings.Join(labs, "\n"), "No recent labs"),
		orDefault(strings.TrimSpace(pc.Transcript), "(No recent conversation documented)"),
	)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
