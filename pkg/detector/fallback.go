package detector

import (
	"strings"

	"temporalos-be/pkg/temporal"
)

const (
	ReasonRulePlanning = "Rule-based: planning/ordering detected"
	ReasonRuleHistory  = "Rule-based: historical review detected"
	ReasonRuleDefault  = "Rule-based: default to present evaluation"
)

// ClassifyContext is the offline classifier over a transcript and recent action tags.
// Planning evidence is checked before historical evidence.
func ClassifyContext(transcript string, recentActions []string) temporal.ClassificationResult {
	text := strings.ToLower(transcript)

	if containsAny(text, "plan", "schedule", "follow-up") || actionContains(recentActions, "order", "prescribe") {
		return temporal.ClassificationResult{Mode: temporal.ModeFuture, Confidence: 0.7, Reason: ReasonRulePlanning}
	}
	if containsAny(text, "history", "previous", "yesterday") || actionContains(recentActions, "scroll", "review") {
		return temporal.ClassificationResult{Mode: temporal.ModePast, Confidence: 0.7, Reason: ReasonRuleHistory}
	}
	return temporal.ClassificationResult{Mode: temporal.ModePresent, Confidence: 0.6, Reason: ReasonRuleDefault}
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func actionContains(actions []string, fragments ...string) bool {
	for _, a := range actions {
		if containsAny(strings.ToLower(a), fragments...) {
			return true
		}
	}
	return false
}
