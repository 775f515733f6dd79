package engine

import (
	"context"
	"time"

	"temporalos-be/internal/metrics"
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/pkg/classifier"
	"temporalos-be/pkg/detector"
	"temporalos-be/pkg/nlp"
	"temporalos-be/pkg/signals"
	"temporalos-be/pkg/temporal"
)

const (
	OutcomeStrictGate = "strict_gate"
	OutcomePageRules  = "page_rules"

	PageRuleConfidence = 0.9
	ReasonPageContext  = "Detected from page context"
	ReasonInsufficient = "Insufficient verified clinical context"
)

// Detection is one automatic classification of a page snapshot.
type Detection struct {
	temporal.ClassificationResult
	Outcome string
}

// Detector classifies a page snapshot. Implementations must not fail; degraded paths are
// reported through Outcome.
type Detector interface {
	Detect(ctx context.Context, page *signals.PageSnapshot) Detection
}

type PipelineConfig struct {
	StrictPatientContext bool
	AllowedHosts         []string
}

// Pipeline runs the strict gate, then the page rules, then the remote classifier.
type Pipeline struct {
	classifier *classifier.Classifier
	analyzer   *nlp.Analyzer
	cfg        PipelineConfig
	logger     logger.ILogger
}

func NewPipeline(c *classifier.Classifier, a *nlp.Analyzer, cfg PipelineConfig, log logger.ILogger) *Pipeline {
	return &Pipeline{classifier: c, analyzer: a, cfg: cfg, logger: log}
}

func (p *Pipeline) Detect(ctx context.Context, page *signals.PageSnapshot) Detection {
	start := time.Now()
	d := p.detect(ctx, page)
	metrics.ClassifierLatency.Observe(time.Since(start).Seconds())
	metrics.ClassifierOutcomes.WithLabelValues(d.Outcome).Inc()
	return d
}

func (p *Pipeline) detect(ctx context.Context, page *signals.PageSnapshot) Detection {
	if p.cfg.StrictPatientContext {
		sc := detector.CollectContext(page)
		if detector.DetectStrict(sc, p.cfg.AllowedHosts) == temporal.ModeInsufficientData {
			return Detection{
				ClassificationResult: temporal.ClassificationResult{Mode: temporal.ModeInsufficientData, Reason: ReasonInsufficient},
				Outcome:              OutcomeStrictGate,
			}
		}
	}

	mode, scores := detector.Detect(detector.FromSnapshot(page))
	if scores.Decisive() {
		return Detection{
			ClassificationResult: temporal.ClassificationResult{Mode: mode, Confidence: PageRuleConfidence, Reason: ReasonPageContext},
			Outcome:              OutcomePageRules,
		}
	}

	transcript := signals.ExtractTranscript(page)
	req := classifier.Request{
		Transcript: transcript,
		Context:    classifier.Context{RecentActions: signals.DetectRecentActions(page)},
	}
	if p.analyzer != nil && transcript != "" {
		analysis := p.analyzer.Analyze(ctx, transcript, nlp.Options{})
		req.Context.Entities = analysis.Entities
		req.Context.TemporalTags = analysis.TemporalTags
	}

	c := p.classifier.Classify(ctx, req)
	return Detection{ClassificationResult: c.ClassificationResult, Outcome: string(c.Outcome)}
}
