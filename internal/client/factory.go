package client

import (
	"context"
	"fmt"

	"completion-kit/internal/config"
	"completion-kit/internal/llm"
)

// NewLLM creates the configured completion provider.
// The returned client is safe for concurrent use from multiple goroutines.
func NewLLM(ctx context.Context, cfg *config.Config, opts ...Option) (llm.Client, error) {
	if hc := httpClientFor(cfg.LLM); hc != nil {
		// Explicit options passed by the caller still win
		opts = append([]Option{WithHTTPClient(hc)}, opts...)
	}

	switch cfg.LLM.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAICompletion(OpenAIConfig{
			APIKey:           cfg.LLM.APIKey,
			Model:            cfg.LLM.Model,
			BaseURL:          cfg.LLM.Endpoint,
			Timeout:          cfg.LLM.Timeout,
			Defaults:         cfg.LLM.Defaults,
			StrictStop:       cfg.LLM.StrictStop,
			BatchConcurrency: cfg.LLM.BatchConcurrency,
		}, opts...)
	case config.ProviderLangChain:
		return NewLangChainOpenAI(cfg.LLM, opts...)
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.LLM, opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.LLM.Provider)
	}
}
