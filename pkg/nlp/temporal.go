package nlp

import (
	"regexp"
	"strings"
)

// TemporalType is the tense a tag points to.
type TemporalType string

const (
	TemporalPast    TemporalType = "past"
	TemporalPresent TemporalType = "present"
	TemporalFuture  TemporalType = "future"
	TemporalUnknown TemporalType = "unknown"
)

// KeywordConfidence is the confidence given to keyword-derived tags.
const KeywordConfidence = 0.7

type TemporalTag struct {
	Text         string       `json:"text"`
	TemporalType TemporalType `json:"temporalType"`
	Confidence   float64      `json:"confidence"`
}

type keywordSet struct {
	kind     TemporalType
	keywords []string
}

var temporalKeywords = []keywordSet{
	{TemporalPast, []string{"yesterday", "last week", "previous", "history", "past", "ago", "was", "were"}},
	{TemporalPresent, []string{"now", "current", "today", "this", "is", "are", "showing", "presenting"}},
	{TemporalFuture, []string{"will", "plan", "follow-up", "next", "schedule", "future", "should"}},
}

var keywordPatterns = compileKeywords()

func compileKeywords() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp)
	for _, set := range temporalKeywords {
		for _, kw := range set.keywords {
			out[kw] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		}
	}
	return out
}

// ExtractTemporalTags tags keyword matches in text and any time-expression entities.
func ExtractTemporalTags(text string, entities []Entity) []TemporalTag {
	tags := make([]TemporalTag, 0)

	for _, set := range temporalKeywords {
		for _, kw := range set.keywords {
			if keywordPatterns[kw].MatchString(text) {
				tags = append(tags, TemporalTag{Text: kw, TemporalType: set.kind, Confidence: KeywordConfidence})
			}
		}
	}

	for _, e := range entities {
		if e.Category != CategoryTimeExpression && e.Type != "TIME" {
			continue
		}
		confidence := e.Score
		if confidence == 0 {
			confidence = 0.5
		}
		tags = append(tags, TemporalTag{Text: e.Text, TemporalType: InferTemporalType(e.Text), Confidence: confidence})
	}
	return tags
}

func InferTemporalType(text string) TemporalType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "yesterday") || strings.Contains(lower, "ago") || strings.Contains(lower, "last"):
		return TemporalPast
	case strings.Contains(lower, "today") || strings.Contains(lower, "now") || strings.Contains(lower, "current"):
		return TemporalPresent
	case strings.Contains(lower, "tomorrow") || strings.Contains(lower, "next") || strings.Contains(lower, "will"):
		return TemporalFuture
	}
	return TemporalUnknown
}
