// Package panel builds the mode-specific side panel shown by the overlay.
package panel

import (
	"fmt"
	"strings"
	"time"

	"temporalos-be/pkg/ehr"
	"temporalos-be/pkg/medication"
	"temporalos-be/pkg/temporal"
)

const (
	TypeMedication = "medication"
	TypeLab        = "lab"
	TypeText       = "text"

	labsShown = 3
)

const insufficientMessage = "Insufficient verified clinical data to reason safely."

type Item struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Value     string `json:"value"`
	Why       string `json:"why,omitempty"`
	Type      string `json:"type"`
	Highlight bool   `json:"highlight,omitempty"`
}

type Content struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

func Title(mode temporal.Mode) string {
	switch mode {
	case temporal.ModePast:
		return "Historical Context"
	case temporal.ModeFuture:
		return "Future Planning"
	case temporal.ModeInsufficientData:
		return "Error"
	default:
		return "Current Evaluation"
	}
}

// Build assembles the panel for mode. Auto is shown as present. patient may be nil.
func Build(mode temporal.Mode, logs []medication.Log, patient *ehr.PatientData) Content {
	if mode == temporal.ModeAuto {
		mode = temporal.ModePresent
	}

	content := Content{Title: Title(mode), Items: []Item{}}
	switch mode {
	case temporal.ModeInsufficientData:
		content.Items = append(content.Items, Item{
			ID:    "insufficient-data",
			Label: "Insufficient data",
			Value: insufficientMessage,
			Type:  TypeText,
		})
	case temporal.ModeFuture:
		content.Items = futureItems(logs)
	default:
		content.Items = clinicalItems(logs, patient)
	}
	return content
}

func clinicalItems(logs []medication.Log, patient *ehr.PatientData) []Item {
	items := []Item{}

	if len(logs) > 0 {
		items = append(items, Item{
			ID:        "meds-header",
			Label:     "Active Medications",
			Value:     fmt.Sprintf("%d medications", len(logs)),
			Why:       "From medication logs",
			Type:      TypeMedication,
			Highlight: true,
		})
		for i, l := range logs {
			items = append(items, medicationItem(i, l))
			if major := majorInteractions(l.Analysis); len(major) > 0 {
				items = append(items, Item{
					ID:        fmt.Sprintf("med-%d-interactions", i),
					Label:     "Interactions",
					Value:     fmt.Sprintf("%d major interaction(s)", len(major)),
					Why:       strings.Join(major, ", "),
					Type:      TypeText,
					Highlight: true,
				})
			}
		}
	}

	if patient != nil && patient.Demographics != nil {
		items = append(items, Item{
			ID:    "demo-header",
			Label: "Patient Demographics",
			Value: fmt.Sprintf("%s years, %s", orNA(patient.Demographics.Age), orNAString(patient.Demographics.Gender)),
			Why:   "From patient record",
			Type:  TypeText,
		})
	}

	if conditions := medication.Conditions(logs); len(conditions) > 0 {
		items = append(items, Item{
			ID:        "conditions-header",
			Label:     "Active Conditions",
			Value:     strings.Join(conditions, ", "),
			Why:       "Derived from medication indications",
			Type:      TypeText,
			Highlight: true,
		})
	}

	if patient != nil && len(patient.Labs) > 0 {
		items = append(items, Item{
			ID:        "labs-header",
			Label:     "Recent Lab Results",
			Value:     fmt.Sprintf("%d results", len(patient.Labs)),
			Why:       "From patient record",
			Type:      TypeLab,
			Highlight: true,
		})
		for i, lab := range patient.Labs {
			if i == labsShown {
				break
			}
			items = append(items, Item{
				ID:    fmt.Sprintf("lab-%d", i),
				Label: lab.Name,
				Value: strings.TrimSpace(lab.Value + " " + lab.Unit),
				Why:   "Measured " + time.UnixMilli(lab.Timestamp).UTC().Format("2006-01-02"),
				Type:  TypeLab,
			})
		}
	}
	return items
}

func futureItems(logs []medication.Log) []Item {
	items := []Item{{
		ID:        "future-header",
		Label:     "Planning Considerations",
		Value:     "Review medication interactions and patient history",
		Why:       "Based on current medications and conditions",
		Type:      TypeText,
		Highlight: true,
	}}
	if len(logs) > 0 {
		items = append(items, Item{
			ID:    "future-meds",
			Label: "Current Medications",
			Value: fmt.Sprintf("%d active medications", len(logs)),
			Why:   "Consider interactions when adding new medications",
			Type:  TypeMedication,
		})
	}
	return items
}

func medicationItem(i int, l medication.Log) Item {
	value := l.Dosage
	if l.Frequency != "" {
		value += " - " + l.Frequency
	}
	why := "Active medication"
	if l.Analysis != nil && l.Analysis.Classification.Category != "" {
		why = l.Analysis.Classification.Category + " - " + l.Analysis.Classification.Indication
	}
	return Item{
		ID:    fmt.Sprintf("med-%d", i),
		Label: l.Medication,
		Value: value,
		Why:   why,
		Type:  TypeMedication,
	}
}

func majorInteractions(a *medication.Analysis) []string {
	if a == nil {
		return nil
	}
	var out []string
	for _, in := range a.Interactions {
		if in.Type == "major" || in.Type == "contraindication" {
			out = append(out, in.Medication)
		}
	}
	return out
}

func orNA(n int) string {
	if n <= 0 {
		return "N/A"
	}
	return fmt.Sprint(n)
}

func orNAString(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
