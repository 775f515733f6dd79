package dto

import (
	"temporalos-be/pkg/classifier"
)

type ClassifyRequest struct {
	Transcript string             `json:"transcript,omitempty" validate:"max=20000"`
	Context    classifier.Context `json:"context"`
}

type ClassifyResponse struct {
	Mode       string  `json:"mode"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Outcome    string  `json:"outcome"`
}

type ExplainRequest struct {
	Mode    string             `json:"mode" validate:"required,oneof=past present future"`
	Context classifier.Context `json:"context"`
}

type AnalyzeTextRequest struct {
	Text         string `json:"text" validate:"required,max=20000"`
	IncludePHI   bool   `json:"includePHI"`
	IncludeICD10 bool   `json:"includeICD10"`
}
