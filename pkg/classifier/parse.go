package classifier

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"temporalos-be/pkg/temporal"

	"github.com/go-playground/validator/v10"
)

// ParseKind tags what ParseResponse found in a remote response.
type ParseKind int

const (
	// ParsedValid holds a result that passed validation.
	ParsedValid ParseKind = iota
	// ParsedUnparseable means no JSON object could be decoded from the text.
	ParsedUnparseable
	// ParsedInvalid means a JSON object was found but failed validation.
	ParsedInvalid
)

func (k ParseKind) String() string {
	switch k {
	case ParsedValid:
		return "valid"
	case ParsedUnparseable:
		return "unparseable"
	case ParsedInvalid:
		return "invalid"
	}
	return "unknown"
}

// Parsed is the tagged outcome of reading a remote classification response.
// Result is only meaningful when Kind is ParsedValid.
type Parsed struct {
	Kind   ParseKind
	Result temporal.ClassificationResult
	Err    error
}

// Greedy: spans from the first '{' to the last '}'.
var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

var validate = validator.New()

type rawClassification struct {
	Mode       string   `json:"mode" validate:"required,oneof=past present future"`
	Confidence *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
	Reason     *string  `json:"reason" validate:"required"`
}

// ExtractJSON returns the greedy brace-delimited span of text, if any.
func ExtractJSON(text string) (string, bool) {
	m := jsonObject.FindString(text)
	return m, m != ""
}

// ParseResponse extracts and validates a {mode, confidence, reason} object embedded anywhere in text.
func ParseResponse(text string) Parsed {
	raw, ok := ExtractJSON(text)
	if !ok {
		return Parsed{Kind: ParsedUnparseable, Err: fmt.Errorf("no JSON object in response")}
	}

	var rc rawClassification
	if err := json.Unmarshal([]byte(raw), &rc); err != nil {
		return Parsed{Kind: ParsedUnparseable, Err: fmt.Errorf("decode response: %w", err)}
	}

	rc.Mode = strings.ToLower(strings.TrimSpace(rc.Mode))
	if err := validate.Struct(rc); err != nil {
		return Parsed{Kind: ParsedInvalid, Err: fmt.Errorf("invalid classification: %w", err)}
	}

	return Parsed{
		Kind: ParsedValid,
		Result: temporal.ClassificationResult{
			Mode:       temporal.Mode(rc.Mode),
			Confidence: *rc.Confidence,
			Reason:     *rc.Reason,
		},
	}
}

const (
	ReasonInferred        = "Inferred from response text"
	ReasonInferredDefault = "Default fallback"
)

// InferFromText guesses a mode from keywords in a response that carried no usable JSON.
func InferFromText(text string) temporal.ClassificationResult {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "past") || strings.Contains(lower, "history") {
		return temporal.ClassificationResult{Mode: temporal.ModePast, Confidence: 0.6, Reason: ReasonInferred}
	}
	if strings.Contains(lower, "future") || strings.Contains(lower, "plan") {
		return temporal.ClassificationResult{Mode: temporal.ModeFuture, Confidence: 0.6, Reason: ReasonInferred}
	}
	return temporal.ClassificationResult{Mode: temporal.ModePresent, Confidence: 0.5, Reason: ReasonInferredDefault}
}
