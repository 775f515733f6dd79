package service

import (
	"context"
	"errors"
	"testing"

	"temporalos-be/internal/pkg/logger"
	"temporalos-be/pkg/ehr"
	"temporalos-be/pkg/medication"
	"temporalos-be/pkg/recommendation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAllergies(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       []string
	}{
		{"none", "patient denies chest pain", nil},
		{"lowercase", "she is allergic to aspirin and dust", []string{"aspirin"}},
		{"mixed case", "Allergic To Penicillin", []string{"Penicillin"}},
		{"first mention only", "allergic to sulfa, also allergic to latex", []string{"sulfa"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectAllergies(tt.transcript))
		})
	}
}

func TestBuildPatientContext(t *testing.T) {
	logs := []medication.Log{
		{Medication: "Lisinopril", Dosage: "10mg", Analysis: &medication.Analysis{
			Classification: medication.Classification{Category: "ACE Inhibitor", Indication: "Hypertension"},
			GraphNodes: []medication.Node{
				{ID: "Lisinopril", Label: "Lisinopril", Type: "medication"},
				{ID: "Hypertension", Label: "Hypertension", Type: "condition"},
			},
		}},
		{Medication: "Mystery", Dosage: "1 tab"},
	}
	patient := &ehr.PatientData{
		PatientID:    "P-1",
		Demographics: &ehr.Demographics{Age: 61, Gender: "F"},
		Labs:         []ehr.Observation{{Name: "eGFR", Value: "55", Unit: "mL/min"}},
	}

	pc := BuildPatientContext(logs, patient, "patient is allergic to aspirin")

	assert.Equal(t, 61, pc.Age)
	assert.Equal(t, "F", pc.Gender)
	assert.Equal(t, []recommendation.Medication{
		{Name: "Lisinopril", Dosage: "10mg", Indication: "Hypertension"},
		{Name: "Mystery", Dosage: "1 tab"},
	}, pc.CurrentMedications)
	assert.Equal(t, []string{"Hypertension"}, pc.Conditions)
	assert.Equal(t, []string{"aspirin"}, pc.Allergies)
	assert.Equal(t, []recommendation.Lab{{Name: "eGFR", Value: "55", Unit: "mL/min"}}, pc.Labs)
}

func TestBuildPatientContextWithoutPatient(t *testing.T) {
	pc := BuildPatientContext(nil, nil, "")
	assert.Zero(t, pc.Age)
	assert.Empty(t, pc.CurrentMedications)
	assert.Nil(t, pc.Labs)
}

func TestRecommendationForSessionFallsBackWithoutModel(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := NewRecommendationService(recommendation.NewGenerator(nil, 0, logger.NewNopLogger()), f.medications, f.ehr, logger.NewNopLogger())

	_, err := f.medications.Confirm(ctx, confirmation("s1", "Metformin", "500mg"))
	require.NoError(t, err)

	rec, outcome, err := svc.ForSession(ctx, "s1", "patient is allergic to aspirin")
	require.NoError(t, err)
	assert.Equal(t, recommendation.OutcomeFallback, outcome)
	assert.NotEqual(t, "Aspirin", rec.Medication)
	assert.NotEmpty(t, rec.Dosage)
}

func TestRecommendationForSessionWithoutHistory(t *testing.T) {
	f := newFixture()
	nop := logger.NewNopLogger()
	unreadable := NewMedicationService(failingLogs{readErr: errors.New("connection reset")}, medication.NewAnalyzer(nil, 0, nop), f.events, nop)
	svc := NewRecommendationService(recommendation.NewGenerator(nil, 0, nop), unreadable, f.ehr, nop)

	rec, outcome, err := svc.ForSession(context.Background(), "s1", "she is allergic to aspirin")
	require.NoError(t, err)
	assert.Equal(t, recommendation.OutcomeFallback, outcome)
	assert.NotEqual(t, "Aspirin", rec.Medication)
	assert.NotEmpty(t, rec.Dosage)
}
