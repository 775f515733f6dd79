package dto

import (
	"temporalos-be/pkg/medication"
	"temporalos-be/pkg/recommendation"
)

type ConfirmMedicationResponse struct {
	Success  bool                 `json:"success"`
	LogId    string               `json:"logId"`
	Analysis *medication.Analysis `json:"analysis,omitempty"`
}

type MedicationLogsResponse struct {
	SessionId string           `json:"sessionId"`
	Logs      []medication.Log `json:"logs"`
}

type GenerateRecommendationRequest struct {
	PatientContext recommendation.PatientContext `json:"patientContext"`
}
