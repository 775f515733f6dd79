package recommendation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"temporalos-be/internal/pkg/logger"
	"temporalos-be/pkg/llm"

	"github.com/go-playground/validator/v10"
)

const DefaultTimeout = 10 * time.Second

var (
	jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)
	validate   = validator.New()
)

type IGenerator interface {
	Generate(ctx context.Context, pc PatientContext) (Recommendation, Outcome)
}

type generator struct {
	provider llm.LLMProvider
	timeout  time.Duration
	logger   logger.ILogger
}

// NewGenerator returns a generator that always yields a recommendation. A nil provider
// means every call uses the fallback table.
func NewGenerator(provider llm.LLMProvider, timeout time.Duration, log logger.ILogger) IGenerator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &generator{provider: provider, timeout: timeout, logger: log}
}

func (g *generator) Generate(ctx context.Context, pc PatientContext) (rec Recommendation, outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("RECOMMENDATION", "Recovered from panic, using fallback", map[string]interface{}{"panic": fmt.Sprint(r)})
			rec, outcome = Fallback(pc), OutcomeFallback
		}
	}()

	if g.provider == nil {
		g.logger.Warn("RECOMMENDATION", "No model configured, using fallback", nil)
		return Fallback(pc), OutcomeFallback
	}
	if strings.TrimSpace(pc.Transcript) == "" {
		g.logger.Warn("RECOMMENDATION", "No transcript available for recommendation context", nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	reply, err := g.provider.Generate(callCtx, BuildPrompt(pc), llm.WithJSON(), llm.WithTemperature(0.3))
	if err != nil {
		g.logger.Warn("RECOMMENDATION", "Model call failed, using fallback", map[string]interface{}{"error": err.Error()})
		return Fallback(pc), OutcomeFallback
	}

	parsed, err := ParseResponse(reply)
	if err != nil {
		g.logger.Warn("RECOMMENDATION", "Rejected model response, using fallback", map[string]interface{}{"error": err.Error()})
		return Fallback(pc), OutcomeFallback
	}

	g.logger.Info("RECOMMENDATION", "Generated recommendation", map[string]interface{}{
		"medication": parsed.Medication,
		"confidence": parsed.Confidence,
	})
	return parsed, OutcomeRemote
}

type rawChecklist struct {
	RenalDosing        *bool `json:"renalDosing" validate:"required"`
	DrugInteractions   *bool `json:"drugInteractions" validate:"required"`
	Allergies          *bool `json:"allergies" validate:"required"`
	GuidelineAlignment *bool `json:"guidelineAlignment" validate:"required"`
}

type rawRecommendation struct {
	Medication      string        `json:"medication" validate:"required"`
	Dosage          string        `json:"dosage" validate:"required"`
	Duration        string        `json:"duration" validate:"required"`
	Confidence      *float64      `json:"confidence" validate:"required,gte=0,lte=1"`
	Reasoning       []string      `json:"reasoning" validate:"required,min=1"`
	SafetyChecklist *rawChecklist `json:"safetyChecklist" validate:"required"`
	Citations       []string      `json:"citations" validate:"required,min=1,dive,required"`
	Alternatives    []string      `json:"alternatives"`
}

var ErrNoJSON = errors.New("no JSON object in response")

// ParseResponse accepts a reply only when every checklist flag and at least one citation
// are present.
func ParseResponse(text string) (Recommendation, error) {
	raw := jsonObject.FindString(text)
	if raw == "" {
		return Recommendation{}, ErrNoJSON
	}

	var r rawRecommendation
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Recommendation{}, fmt.Errorf("decode recommendation: %w", err)
	}
	if err := validate.Struct(r); err != nil {
		return Recommendation{}, fmt.Errorf("invalid recommendation: %w", err)
	}

	return Recommendation{
		Medication: r.Medication,
		Dosage:     r.Dosage,
		Duration:   r.Duration,
		Confidence: *r.Confidence,
		Reasoning:  r.Reasoning,
		SafetyChecklist: SafetyChecklist{
			RenalDosing:        *r.SafetyChecklist.RenalDosing,
			DrugInteractions:   *r.SafetyChecklist.DrugInteractions,
			Allergies:          *r.SafetyChecklist.Allergies,
			GuidelineAlignment: *r.SafetyChecklist.GuidelineAlignment,
		},
		Citations:    r.Citations,
		Alternatives: r.Alternatives,
	}, nil
}
