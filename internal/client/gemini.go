package client

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"completion-kit/internal/config"
	"completion-kit/internal/llm"
	"completion-kit/internal/types"

	"google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
// Gemini has no suffix parameter; CompletionOptions.Suffix is dropped.
type GeminiClient struct {
	cli         *genai.Client
	model       string
	defaults    config.CompletionDefaults
	strictStop  bool
	timeout     time.Duration
	concurrency int
	hook        llm.Hook
}

// NewGeminiClient validates cfg and creates a Gemini API client.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, opts ...Option) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, types.NewConfigError("api_key", "no Gemini API key provided")
	}
	if cfg.Model == "" {
		return nil, types.NewConfigError("model", "no model name provided")
	}

	s := newSettings(opts)
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.httpClient,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions.BaseURL = cfg.Endpoint
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{
		cli:         cli,
		model:       cfg.Model,
		defaults:    cfg.Defaults,
		strictStop:  cfg.StrictStop,
		timeout:     cfg.Timeout,
		concurrency: cfg.BatchConcurrency,
		hook:        s.hook,
	}, nil
}

// Name returns the provider name
func (g *GeminiClient) Name() string { return "gemini-" + g.model }

func (g *GeminiClient) generateConfig(opts *llm.CompletionOptions) (*genai.GenerateContentConfig, error) {
	gc := &genai.GenerateContentConfig{CandidateCount: 1}
	d := g.defaults
	if d.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(min(d.MaxTokens, math.MaxInt32))
	}
	if d.Temperature != nil {
		gc.Temperature = genai.Ptr(float32(*d.Temperature))
	}
	if d.TopP != nil {
		gc.TopP = genai.Ptr(float32(*d.TopP))
	}

	stop := d.Stop
	if opts != nil {
		if opts.Stop != "" {
			if g.strictStop && d.Stop != "" {
				return nil, types.ErrConflictingStop
			}
			stop = opts.Stop
		}
		if opts.Suffix != "" {
			slog.Debug("gemini: suffix not supported, ignoring", "provider", g.Name())
		}
	}
	if stop != "" {
		gc.StopSequences = []string{stop}
	}
	return gc, nil
}

// GetCompletion sends prompt and returns the text of the first candidate.
func (g *GeminiClient) GetCompletion(ctx context.Context, prompt string, opts *llm.CompletionOptions) (string, error) {
	if prompt == "" {
		return "", types.ErrEmptyPrompt
	}
	gc, err := g.generateConfig(opts)
	if err != nil {
		return "", err
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	name := g.Name()
	g.hook.Before(ctx, name, prompt)
	start := time.Now()
	text, err := g.complete(ctx, prompt, gc)
	g.hook.After(ctx, name, text, time.Since(start), err)
	return text, err
}

func (g *GeminiClient) complete(ctx context.Context, prompt string, gc *genai.GenerateContentConfig) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, genai.Text(prompt), gc)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w from Gemini", types.ErrNoChoices)
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("%w from Gemini", types.ErrNoCompletion)
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w from Gemini", types.ErrNoCompletion)
	}
	return sb.String(), nil
}

// Generate runs GetCompletion for every prompt; see llm.Generate.
func (g *GeminiClient) Generate(ctx context.Context, prompts []string, opts *llm.CompletionOptions) (*llm.Result, error) {
	return llm.Generate(ctx, g, prompts, opts, g.concurrency)
}

var (
	_ llm.Client    = (*GeminiClient)(nil)
	_ llm.Generator = (*GeminiClient)(nil)
)
