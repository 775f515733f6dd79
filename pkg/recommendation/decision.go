package recommendation

import (
	"fmt"
	"strings"
	"time"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionModify  Decision = "modify"
	DecisionReject  Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionModify || d == DecisionReject
}

type RejectionReason struct {
	Cost              bool   `json:"cost,omitempty"`
	PriorIntolerance  bool   `json:"priorIntolerance,omitempty"`
	ClinicalNuance    bool   `json:"clinicalNuance,omitempty"`
	PatientPreference bool   `json:"patientPreference,omitempty"`
	Other             string `json:"other,omitempty"`
}

func (r RejectionReason) Labels() []string {
	var out []string
	if r.Cost {
		out = append(out, "Cost")
	}
	if r.PriorIntolerance {
		out = append(out, "Prior intolerance")
	}
	if r.ClinicalNuance {
		out = append(out, "Clinical nuance")
	}
	if r.PatientPreference {
		out = append(out, "Patient preference")
	}
	if r.Other != "" {
		out = append(out, r.Other)
	}
	return out
}

// Resolution is the clinician's answer to a recommendation.
type Resolution struct {
	Decision       Decision
	ModifiedDosage string
	Rejection      RejectionReason
	ResolvedBy     string
	ResolvedAt     time.Time
}

// ExportDecision renders a resolved recommendation as a plain-text record.
func ExportDecision(rec Recommendation, res Resolution) string {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("PRESCRIPTION DECISION")
	line("Decision: %s", strings.ToUpper(string(res.Decision)))
	line("Date: %s", res.ResolvedAt.UTC().Format(time.RFC3339))
	if res.ResolvedBy != "" {
		line("Clinician: %s", res.ResolvedBy)
	}
	line("")
	line("Medication: %s", rec.Medication)
	dosage := rec.Dosage
	if res.Decision == DecisionModify && res.ModifiedDosage != "" {
		dosage = fmt.Sprintf("%s (modified from %s)", res.ModifiedDosage, rec.Dosage)
	}
	line("Dosage: %s", dosage)
	line("Duration: %s", rec.Duration)
	line("Confidence: %d%%", int(rec.Confidence*100+0.5))

	line("")
	line("Reasoning:")
	for i, r := range rec.Reasoning {
		line("%d. %s", i+1, r)
	}

	line("")
	line("Safety checklist:")
	check := func(ok bool, label string) {
		mark := " "
		if ok {
			mark = "x"
		}
		line("[%s] %s", mark, label)
	}
	check(rec.SafetyChecklist.RenalDosing, "Renal dosing")
	check(rec.SafetyChecklist.DrugInteractions, "Drug interactions")
	check(rec.SafetyChecklist.Allergies, "Allergies")
	check(rec.SafetyChecklist.GuidelineAlignment, "Guideline alignment")

	line("")
	line("Citations:")
	for _, c := range rec.Citations {
		line("- %s", c)
	}

	if res.Decision == DecisionReject {
		line("")
		reasons := res.Rejection.Labels()
		if len(reasons) == 0 {
			reasons = []string{"Not specified"}
		}
		line("Rejection reasons: %s", strings.Join(reasons, ", "))
	}
	return b.String()
}
