package medication

import "strings"

var knownClassifications = map[string]Classification{
	"lisinopril": {
		Category:   "ACE Inhibitor",
		Indication: "Hypertension, Heart Failure",
		Mechanism:  "Inhibits angiotensin-converting enzyme, reducing blood pressure",
	},
	"metformin": {
		Category:   "Biguanide",
		Indication: "Type 2 Diabetes",
		Mechanism:  "Decreases hepatic glucose production and improves insulin sensitivity",
	},
	"atorvastatin": {
		Category:   "HMG-CoA Reductase Inhibitor (Statin)",
		Indication: "Hyperlipidemia, Cardiovascular Disease Prevention",
		Mechanism:  "Inhibits HMG-CoA reductase, reducing cholesterol synthesis",
	},
	"aspirin": {
		Category:   "Antiplatelet Agent",
		Indication: "Cardiovascular Disease Prevention, Pain Relief",
		Mechanism:  "Irreversibly inhibits cyclooxygenase, preventing platelet aggregation",
	},
}

var unknownClassification = Classification{
	Category:   "Unknown",
	Indication: "Various conditions",
	Mechanism:  "Unknown mechanism",
}

// indicationConditions links indication keywords to the condition node they produce.
var indicationConditions = []struct {
	keywords  []string
	condition string
}{
	{[]string{"Hypertension"}, "Hypertension"},
	{[]string{"Diabetes"}, "Type 2 Diabetes"},
	{[]string{"Hyperlipidemia", "Cardiovascular"}, "Hyperlipidemia"},
}

// FallbackAnalysis classifies from a fixed table and links the medication to the
// conditions its indication names.
func FallbackAnalysis(medication string) Analysis {
	class, ok := knownClassifications[strings.ToLower(strings.TrimSpace(medication))]
	if !ok {
		class = unknownClassification
	}

	a := Analysis{
		Medication:     medication,
		Classification: class,
		Interactions:   []Interaction{},
		GraphNodes:     []Node{{ID: medication, Label: medication, Type: "medication"}},
		GraphEdges:     []Edge{},
	}
	for _, ic := range indicationConditions {
		for _, kw := range ic.keywords {
			if strings.Contains(class.Indication, kw) {
				a.GraphNodes = append(a.GraphNodes, Node{ID: ic.condition, Label: ic.condition, Type: "condition"})
				a.GraphEdges = append(a.GraphEdges, Edge{Source: medication, Target: ic.condition, Type: "treats", Polarity: "positive"})
				break
			}
		}
	}
	return a
}

// basicConnections is used for logs that carry no analysis at all.
func basicConnections(medication string) []string {
	name := strings.ToLower(medication)
	var out []string
	if strings.Contains(name, "lisinopril") || strings.Contains(name, "ace") {
		out = append(out, "Hypertension", "Heart Failure")
	}
	if strings.Contains(name, "metformin") {
		out = append(out, "Type 2 Diabetes")
	}
	if strings.Contains(name, "atorvastatin") || strings.Contains(name, "statin") {
		out = append(out, "Hyperlipidemia")
	}
	if strings.Contains(name, "aspirin") {
		out = append(out, "Cardiovascular Disease")
	}
	return out
}
