package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"temporalos-be/internal/pkg/logger"
)

const CategoryTimeExpression = "TIME_EXPRESSION"

type Entity struct {
	Text        string  `json:"text"`
	Category    string  `json:"category"`
	Type        string  `json:"type,omitempty"`
	Score       float64 `json:"score,omitempty"`
	BeginOffset int     `json:"beginOffset,omitempty"`
	EndOffset   int     `json:"endOffset,omitempty"`
}

type ICD10Code struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type Options struct {
	IncludePHI   bool `json:"includePHI"`
	IncludeICD10 bool `json:"includeICD10"`
}

// Extraction is what an entity provider returns.
type Extraction struct {
	Entities   []Entity    `json:"entities"`
	PHI        []Entity    `json:"phi,omitempty"`
	ICD10Codes []ICD10Code `json:"icd10Codes,omitempty"`
}

type Analysis struct {
	Entities     []Entity      `json:"entities"`
	TemporalTags []TemporalTag `json:"temporalTags"`
	PHI          []Entity      `json:"phi,omitempty"`
	ICD10Codes   []ICD10Code   `json:"icd10Codes,omitempty"`
}

// EntityExtractor is a medical entity/PHI/code extraction provider.
type EntityExtractor interface {
	Extract(ctx context.Context, text string, opts Options) (*Extraction, error)
}

// Analyzer combines remote entity extraction with local temporal tagging.
// Provider failures leave entities empty.
type Analyzer struct {
	extractor EntityExtractor
	logger    logger.ILogger
}

func NewAnalyzer(extractor EntityExtractor, log logger.ILogger) *Analyzer {
	return &Analyzer{extractor: extractor, logger: log}
}

func (a *Analyzer) Analyze(ctx context.Context, text string, opts Options) Analysis {
	result := Analysis{Entities: []Entity{}}

	if a.extractor != nil {
		ext, err := a.extractor.Extract(ctx, text, opts)
		if err != nil {
			a.logger.Warn("NLP", "Entity extraction failed, continuing without entities", map[string]interface{}{"error": err.Error()})
		} else if ext != nil {
			if ext.Entities != nil {
				result.Entities = ext.Entities
			}
			if opts.IncludePHI {
				result.PHI = nonNil(ext.PHI)
			}
			if opts.IncludeICD10 {
				result.ICD10Codes = ext.ICD10Codes
				if result.ICD10Codes == nil {
					result.ICD10Codes = []ICD10Code{}
				}
			}
		}
	}

	result.TemporalTags = ExtractTemporalTags(text, result.Entities)
	return result
}

func nonNil(e []Entity) []Entity {
	if e == nil {
		return []Entity{}
	}
	return e
}

// HTTPExtractor posts text to an external analyzeText endpoint.
type HTTPExtractor struct {
	URL    string
	APIKey string
	Client *http.Client
}

func NewHTTPExtractor(url, apiKey string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		URL:    url,
		APIKey: apiKey,
		Client: &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	Text         string `json:"text"`
	IncludePHI   bool   `json:"includePHI,omitempty"`
	IncludeICD10 bool   `json:"includeICD10,omitempty"`
}

func (h *HTTPExtractor) Extract(ctx context.Context, text string, opts Options) (*Extraction, error) {
	body, err := json.Marshal(extractRequest{Text: text, IncludePHI: opts.IncludePHI, IncludeICD10: opts.IncludeICD10})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("entity request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("entity provider error: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var out Extraction
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &out, nil
}
