package medication

import (
	"context"
	"errors"
	"testing"

	"temporalos-be/internal/pkg/logger"
	"temporalos-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply string
	err   error
}

func (s stubProvider) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	return s.reply, s.err
}

func (s stubProvider) Generate(context.Context, string, ...llm.Option) (string, error) {
	return s.reply, s.err
}

func TestFallbackAnalysis(t *testing.T) {
	tests := []struct {
		med        string
		category   string
		conditions []string
	}{
		{"Lisinopril", "ACE Inhibitor", []string{"Hypertension"}},
		{"metformin", "Biguanide", []string{"Type 2 Diabetes"}},
		{"Atorvastatin", "HMG-CoA Reductase Inhibitor (Statin)", []string{"Hyperlipidemia"}},
		{"Aspirin", "Antiplatelet Agent", []string{"Hyperlipidemia"}},
		{"Warfarin", "Unknown", nil},
	}
	for _, tt := range tests {
		t.Run(tt.med, func(t *testing.T) {
			a := FallbackAnalysis(tt.med)
			assert.Equal(t, tt.category, a.Classification.Category)
			require.NotEmpty(t, a.GraphNodes)
			assert.Equal(t, tt.med, a.GraphNodes[0].ID)

			var got []string
			for _, e := range a.GraphEdges {
				assert.Equal(t, tt.med, e.Source)
				got = append(got, e.Target)
			}
			assert.Equal(t, tt.conditions, got)
		})
	}
	assert.Equal(t, "Various conditions", FallbackAnalysis("Warfarin").Classification.Indication)
}

func TestBuildGraphMergesNodesByID(t *testing.T) {
	a1 := FallbackAnalysis("Lisinopril")
	a2 := FallbackAnalysis("Atorvastatin")
	logs := []Log{
		{Medication: "Lisinopril", Dosage: "10mg", Analysis: &a1},
		{Medication: "Atorvastatin", Dosage: "20mg", Analysis: &a2},
		{Medication: "Lisinopril", Dosage: "20mg", Analysis: &a1},
		{Medication: "Aspirin", Dosage: "81mg"},
	}
	g := BuildGraph(logs)

	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"Lisinopril", "Hypertension", "Atorvastatin", "Hyperlipidemia", "Aspirin", "Cardiovascular Disease"}, ids)
	assert.Equal(t, "20mg", g.Nodes[0].Properties["dosage"])
	assert.Len(t, g.Edges, 4)
	assert.Equal(t, Edge{Source: "Aspirin", Target: "Cardiovascular Disease", Type: "treats", Polarity: "positive"}, g.Edges[3])
}

func TestBuildGraphEmpty(t *testing.T) {
	g := BuildGraph(nil)
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Edges)
}

func TestConditions(t *testing.T) {
	a1 := FallbackAnalysis("Atorvastatin")
	a2 := FallbackAnalysis("Aspirin")
	assert.Equal(t, []string{"Hyperlipidemia"}, Conditions([]Log{{Analysis: &a1}, {Analysis: &a2}, {}}))
}

func TestAnalyzer(t *testing.T) {
	valid := `{"classification":{"category":"Anticoagulant","indication":"Atrial fibrillation"},
		"interactions":[{"medication":"Aspirin","type":"major","description":"bleeding","severity":"high"}],
		"graphNodes":[{"id":"Warfarin","label":"Warfarin","type":"medication"}],
		"graphEdges":[]}`
	badEnum := `{"classification":{"category":"X","indication":"Y"},"interactions":[],
		"graphNodes":[{"id":"a","label":"a","type":"planet"}],"graphEdges":[]}`

	c := Confirmation{SessionID: "s", PatientID: "p", Medication: "Warfarin", Dosage: "5mg"}
	tests := []struct {
		name     string
		provider llm.LLMProvider
		category string
	}{
		{"remote", stubProvider{reply: valid}, "Anticoagulant"},
		{"schema violation", stubProvider{reply: badEnum}, "Unknown"},
		{"transport", stubProvider{err: errors.New("down")}, "Unknown"},
		{"no provider", nil, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(tt.provider, 0, logger.NewNopLogger()).Analyze(context.Background(), c)
			assert.Equal(t, tt.category, a.Classification.Category)
			assert.Equal(t, "Warfarin", a.Medication)
		})
	}
}

func TestDemoMedications(t *testing.T) {
	meds := DemoMedications("s1", "")
	require.Len(t, meds, 4)
	assert.Equal(t, "Lisinopril", meds[0].Medication)
	assert.Equal(t, DemoPatientID, meds[0].PatientID)
	assert.Equal(t, "s1", meds[3].SessionID)
}
