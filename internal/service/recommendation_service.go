package service

import (
	"context"
	"regexp"

	"temporalos-be/internal/metrics"
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/pkg/ehr"
	"temporalos-be/pkg/medication"
	"temporalos-be/pkg/recommendation"
)

var allergyPattern = regexp.MustCompile(`(?i)allergic to (\w+)`)

type IRecommendationService interface {
	Generate(ctx context.Context, pc recommendation.PatientContext) recommendation.Recommendation
	// ForSession assembles the patient context from the session's medication logs,
	// the EHR record and the live transcript, then generates.
	ForSession(ctx context.Context, sessionID, transcript string) (recommendation.Recommendation, recommendation.Outcome, error)
}

type recommendationService struct {
	generator   recommendation.IGenerator
	medications IMedicationService
	ehr         ehr.Provider
	logger      logger.ILogger
}

func NewRecommendationService(
	generator recommendation.IGenerator,
	medications IMedicationService,
	ehrProvider ehr.Provider,
	log logger.ILogger,
) IRecommendationService {
	return &recommendationService{
		generator:   generator,
		medications: medications,
		ehr:         ehrProvider,
		logger:      log,
	}
}

func (s *recommendationService) Generate(ctx context.Context, pc recommendation.PatientContext) recommendation.Recommendation {
	rec, outcome := s.generator.Generate(ctx, pc)
	metrics.RecommendationOutcomes.WithLabelValues(string(outcome)).Inc()
	return rec
}

func (s *recommendationService) ForSession(ctx context.Context, sessionID, transcript string) (recommendation.Recommendation, recommendation.Outcome, error) {
	logs, err := s.medications.Logs(ctx, sessionID)
	if err != nil {
		s.logger.Warn("RECOMMENDATION", "Medication history unavailable", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		logs = nil
	}

	patientID := medication.DemoPatientID
	if len(logs) > 0 && logs[0].PatientID != "" {
		patientID = logs[0].PatientID
	}

	patient, err := s.ehr.PatientData(ctx, patientID, false)
	if err != nil {
		// Recommendations still go out without EHR data.
		s.logger.Warn("RECOMMENDATION", "Patient data unavailable", map[string]interface{}{
			"patient_id": patientID,
			"error":      err.Error(),
		})
		patient = nil
	}

	pc := BuildPatientContext(logs, patient, transcript)
	rec, outcome := s.generator.Generate(ctx, pc)
	metrics.RecommendationOutcomes.WithLabelValues(string(outcome)).Inc()
	return rec, outcome, nil
}

func BuildPatientContext(logs []medication.Log, patient *ehr.PatientData, transcript string) recommendation.PatientContext {
	pc := recommendation.PatientContext{
		CurrentMedications: make([]recommendation.Medication, 0, len(logs)),
		Conditions:         medication.Conditions(logs),
		Allergies:          DetectAllergies(transcript),
		Transcript:         transcript,
	}
	for _, l := range logs {
		m := recommendation.Medication{Name: l.Medication, Dosage: l.Dosage}
		if l.Analysis != nil {
			m.Indication = l.Analysis.Classification.Indication
		}
		pc.CurrentMedications = append(pc.CurrentMedications, m)
	}

	if patient == nil {
		return pc
	}
	if patient.Demographics != nil {
		pc.Age = patient.Demographics.Age
		pc.Gender = patient.Demographics.Gender
	}
	for _, lab := range patient.Labs {
		pc.Labs = append(pc.Labs, recommendation.Lab{Name: lab.Name, Value: lab.Value, Unit: lab.Unit})
	}
	return pc
}

// DetectAllergies returns the first "allergic to X" mention in the transcript.
func DetectAllergies(transcript string) []string {
	m := allergyPattern.FindStringSubmatch(transcript)
	if m == nil {
		return nil
	}
	return []string{m[1]}
}
