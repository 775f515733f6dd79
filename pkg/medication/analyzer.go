package medication

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"temporalos-be/internal/pkg/logger"
	"temporalos-be/pkg/llm"

	"github.com/go-playground/validator/v10"
)

var (
	jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)
	validate   = validator.New()
)

const analysisPrompt = `You are a clinical pharmacist analysing a newly prescribed medication.

Medication: %s
Dosage: %s
%s
Return ONLY JSON in this exact shape:
{
  "classification": {"category": "e.g. ACE Inhibitor", "indication": "primary use", "mechanism": "how it works"},
  "interactions": [{"medication": "name", "type": "contraindication|major|moderate|minor|beneficial", "description": "what happens", "severity": "high|medium|low", "recommendation": "what to do"}],
  "contraindications": ["..."],
  "warnings": ["..."],
  "monitoring": ["..."],
  "graphNodes": [{"id": "unique id", "label": "display name", "type": "medication|condition|symptom|lab|interaction", "properties": {}}],
  "graphEdges": [{"source": "node id", "target": "node id", "type": "treats|causes|interacts_with|monitors|contraindicated_by", "polarity": "positive|negative|neutral", "properties": {}}]
}`

type Analyzer struct {
	provider llm.LLMProvider
	timeout  time.Duration
	logger   logger.ILogger
}

func NewAnalyzer(provider llm.LLMProvider, timeout time.Duration, log logger.ILogger) *Analyzer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Analyzer{provider: provider, timeout: timeout, logger: log}
}

// Analyze never fails: any model problem yields FallbackAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, c Confirmation) Analysis {
	if a.provider == nil {
		return FallbackAnalysis(c.Medication)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.provider.Generate(callCtx, buildAnalysisPrompt(c), llm.WithJSON())
	if err != nil {
		a.logger.Warn("MEDICATION", "Analysis call failed, using fallback", map[string]interface{}{
			"medication": c.Medication,
			"error":      err.Error(),
		})
		return FallbackAnalysis(c.Medication)
	}

	analysis, err := ParseAnalysis(reply)
	if err != nil {
		a.logger.Warn("MEDICATION", "Rejected analysis response, using fallback", map[string]interface{}{
			"medication": c.Medication,
			"error":      err.Error(),
		})
		return FallbackAnalysis(c.Medication)
	}
	if analysis.Medication == "" {
		analysis.Medication = c.Medication
	}
	return analysis
}

func ParseAnalysis(text string) (Analysis, error) {
	raw := jsonObject.FindString(text)
	if raw == "" {
		return Analysis{}, fmt.Errorf("no JSON object in response")
	}
	var out Analysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return Analysis{}, fmt.Errorf("invalid analysis: %w", err)
	}
	if out.Interactions == nil {
		out.Interactions = []Interaction{}
	}
	if out.GraphNodes == nil {
		out.GraphNodes = []Node{}
	}
	if out.GraphEdges == nil {
		out.GraphEdges = []Edge{}
	}
	return out, nil
}

func buildAnalysisPrompt(c Confirmation) string {
	var extra []string
	if c.Route != "" {
		extra = append(extra, "Route: "+c.Route)
	}
	if c.Frequency != "" {
		extra = append(extra, "Frequency: "+c.Frequency)
	}
	return fmt.Sprintf(analysisPrompt, c.Medication, c.Dosage, strings.Join(extra, "\n"))
}
