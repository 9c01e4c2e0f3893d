package ai

import (
	"context"
	"errors"
	"fmt"

	"medical-rag-chatbot/internal/config"
	"medical-rag-chatbot/internal/telemetry"
)

// ErrServiceUnavailable is returned while the LLM circuit breaker is open.
var ErrServiceUnavailable = errors.New("llm service unavailable")

// Generator turns a prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewGenerator builds the LLM client selected by LLM_PROVIDER.
func NewGenerator(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (Generator, func() error, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderGemini, "":
		gc, err := NewGeminiClient(ctx, cfg, metrics)
		if err != nil {
			return nil, nil, err
		}
		return gc, gc.Close, nil
	case config.LLMProviderHuggingFace:
		ic := NewInferenceClient(cfg.HFAPIURL, cfg.HFAPIToken, cfg.LLMTimeout, metrics)
		return ic, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}
