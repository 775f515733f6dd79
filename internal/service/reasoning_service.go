package service

import (
	"context"

	"temporalos-be/internal/dto"
	"temporalos-be/internal/metrics"
	"temporalos-be/pkg/classifier"
	"temporalos-be/pkg/nlp"
	"temporalos-be/pkg/temporal"
)

type IReasoningService interface {
	Classify(ctx context.Context, req *dto.ClassifyRequest) *dto.ClassifyResponse
	Explain(ctx context.Context, req *dto.ExplainRequest) classifier.Explanation
	Analyze(ctx context.Context, req *dto.AnalyzeTextRequest) nlp.Analysis
}

type modeClassifier interface {
	Classify(ctx context.Context, req classifier.Request) classifier.Classification
	Explain(ctx context.Context, mode temporal.Mode, evidence classifier.Context) classifier.Explanation
}

type textAnalyzer interface {
	Analyze(ctx context.Context, text string, opts nlp.Options) nlp.Analysis
}

type reasoningService struct {
	classifier modeClassifier
	analyzer   textAnalyzer
}

func NewReasoningService(c modeClassifier, a textAnalyzer) IReasoningService {
	return &reasoningService{classifier: c, analyzer: a}
}

func (s *reasoningService) Classify(ctx context.Context, req *dto.ClassifyRequest) *dto.ClassifyResponse {
	result := s.classifier.Classify(ctx, classifier.Request{Transcript: req.Transcript, Context: req.Context})
	metrics.ClassifierOutcomes.WithLabelValues(string(result.Outcome)).Inc()
	return &dto.ClassifyResponse{
		Mode:       string(result.Mode),
		Confidence: result.Confidence,
		Reason:     result.Reason,
		Outcome:    string(result.Outcome),
	}
}

func (s *reasoningService) Explain(ctx context.Context, req *dto.ExplainRequest) classifier.Explanation {
	return s.classifier.Explain(ctx, temporal.Mode(req.Mode), req.Context)
}

func (s *reasoningService) Analyze(ctx context.Context, req *dto.AnalyzeTextRequest) nlp.Analysis {
	return s.analyzer.Analyze(ctx, req.Text, nlp.Options{IncludePHI: req.IncludePHI, IncludeICD10: req.IncludeICD10})
}
