// Package classifier adapts a remote LLM into a mode classifier that always returns a usable result.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"temporalos-be/internal/pkg/logger"
	"temporalos-be/pkg/detector"
	"temporalos-be/pkg/llm"
	"temporalos-be/pkg/temporal"
)

const DefaultTimeout = 10 * time.Second

// Outcome names the path that produced a classification.
type Outcome string

const (
	OutcomeRemote        Outcome = "remote"
	OutcomeParseInferred Outcome = "parse_inferred"
	OutcomeRuleFallback  Outcome = "rule_fallback"
)

// Classification is a result plus the path that produced it.
type Classification struct {
	temporal.ClassificationResult
	Outcome Outcome `json:"-"`
}

type Classifier struct {
	provider llm.LLMProvider
	timeout  time.Duration
	logger   logger.ILogger
}

// New returns a classifier. A nil provider classifies with local rules only.
func New(provider llm.LLMProvider, timeout time.Duration, log logger.ILogger) *Classifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Classifier{provider: provider, timeout: timeout, logger: log}
}

// Classify never fails. Transport errors, timeouts and schema violations fall back to the
// rule-based classifier; a response with no decodable JSON is read for mode keywords.
func (c *Classifier) Classify(ctx context.Context, req Request) (out Classification) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("CLASSIFIER", "Recovered from panic during classification", map[string]interface{}{"panic": fmt.Sprint(r)})
			out = c.fallback(req)
		}
	}()

	if c.provider == nil {
		return c.fallback(req)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.provider.Chat(callCtx, []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: BuildPrompt(req)},
	}, llm.WithMaxTokens(1024), llm.WithTemperature(0.1))
	if err != nil {
		c.logger.Warn("CLASSIFIER", "Remote classification failed, using rule-based fallback", map[string]interface{}{"error": err.Error()})
		return c.fallback(req)
	}

	parsed := ParseResponse(text)
	switch parsed.Kind {
	case ParsedValid:
		return Classification{ClassificationResult: parsed.Result, Outcome: OutcomeRemote}
	case ParsedUnparseable:
		c.logger.Warn("CLASSIFIER", "Unparseable classification response, inferring from text", map[string]interface{}{"error": parsed.Err.Error()})
		return Classification{ClassificationResult: InferFromText(text), Outcome: OutcomeParseInferred}
	default:
		c.logger.Warn("CLASSIFIER", "Classification response failed validation, using rule-based fallback", map[string]interface{}{"error": parsed.Err.Error()})
		return c.fallback(req)
	}
}

func (c *Classifier) fallback(req Request) Classification {
	return Classification{
		ClassificationResult: detector.ClassifyContext(req.Transcript, req.Context.RecentActions),
		Outcome:              OutcomeRuleFallback,
	}
}

type Explanation struct {
	Explanation  string   `json:"explanation"`
	RelevantData []string `json:"relevantData"`
}

const explainPrompt = `You explain to a clinician why the assistant believes they are in the %s reasoning mode.
Reply in two sentences, plain text, no lists.

%s`

// Explain describes why mode applies to the given context. It falls back to a fixed sentence.
func (c *Classifier) Explain(ctx context.Context, mode temporal.Mode, evidence Context) Explanation {
	fallback := Explanation{
		Explanation:  fmt.Sprintf("The clinician is in %s reasoning mode.", mode),
		RelevantData: []string{},
	}
	if c.provider == nil {
		return fallback
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.provider.Generate(callCtx, fmt.Sprintf(explainPrompt, mode, BuildPrompt(Request{Context: evidence})))
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			c.logger.Warn("CLASSIFIER", "Explanation failed", map[string]interface{}{"error": err.Error()})
		}
		return fallback
	}

	relevant := make([]string, 0, len(evidence.RecentActions))
	relevant = append(relevant, evidence.RecentActions...)
	return Explanation{Explanation: strings.TrimSpace(text), RelevantData: relevant}
}
