package factory

import (
	"context"
	"fmt"
	"time"

	"temporalos-be/pkg/llm"
	"temporalos-be/pkg/llm/gemini"
	"temporalos-be/pkg/llm/ollama"
)

type Config struct {
	Provider      string // "gemini" | "ollama" | "none"
	Model         string
	OllamaBaseURL string
	GeminiAPIKey  string
	// Timeout bounds a single Ollama HTTP call. Callers still apply their own deadline.
	Timeout time.Duration
}

// NewLLMProvider returns nil and no error for provider "none"; callers then run on rule-based fallbacks.
func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "gemini":
		p, err := gemini.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model, cfg.Timeout), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
