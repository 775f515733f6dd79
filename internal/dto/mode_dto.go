package dto

import (
	"temporalos-be/pkg/engine"
	"temporalos-be/pkg/recommendation"
)

type SelectModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=auto past present future"`
}

type AutoModeRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type SpeechFragmentRequest struct {
	Text  string `json:"text" validate:"required,max=4000"`
	Final bool   `json:"final"`
}

type SpeechErrorRequest struct {
	Code string `json:"code" validate:"required,oneof=not-allowed audio-capture no-speech aborted network"`
}

type ResolveRecommendationRequest struct {
	Action          string                          `json:"action" validate:"required,oneof=approve modify reject"`
	Dosage          string                          `json:"dosage,omitempty" validate:"required_if=Action modify"`
	RejectionReason *recommendation.RejectionReason `json:"rejectionReason,omitempty"`
	PatientId       string                          `json:"patientId,omitempty"`
}

type ResolveRecommendationResponse struct {
	Decision       string                        `json:"decision"`
	Recommendation recommendation.Recommendation `json:"recommendation"`
	Export         string                        `json:"export"`
	LogId          string                        `json:"logId,omitempty"`
	State          engine.Snapshot               `json:"state"`
}

type StartEngineResponse struct {
	Created bool            `json:"created"`
	State   engine.Snapshot `json:"state"`
}
