package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"completion-kit/internal/config"
	"completion-kit/internal/llm"
	"completion-kit/internal/types"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIConfig configures the OpenAI completion provider.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout bounds a single request; zero leaves it to the caller's context.
	Timeout          time.Duration
	Defaults         config.CompletionDefaults
	StrictStop       bool
	BatchConcurrency int
}

// OpenAICompletion implements llm.Client on top of the OpenAI legacy completions endpoint.
// It is safe for concurrent use; its configuration is read-only after construction.
type OpenAICompletion struct {
	client      *openai.Client
	model       string
	defaults    config.CompletionDefaults
	strictStop  bool
	timeout     time.Duration
	concurrency int
	hook        llm.Hook
}

// NewOpenAICompletion validates cfg and creates the provider.
// The SDK is configured with zero retries: one call, one request.
func NewOpenAICompletion(cfg OpenAIConfig, opts ...Option) (*OpenAICompletion, error) {
	if cfg.APIKey == "" {
		return nil, types.NewConfigError("api_key", "no OpenAI API key provided")
	}
	if cfg.Model == "" {
		return nil, types.NewConfigError("model", "no model name provided")
	}

	s := newSettings(opts)
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if s.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(s.httpClient))
	}
	client := openai.NewClient(reqOpts...)

	return &OpenAICompletion{
		client:      &client,
		model:       cfg.Model,
		defaults:    cfg.Defaults,
		strictStop:  cfg.StrictStop,
		timeout:     cfg.Timeout,
		concurrency: cfg.BatchConcurrency,
		hook:        s.hook,
	}, nil
}

// Name returns the model name
func (c *OpenAICompletion) Name() string {
	return "openai-" + c.model
}

// Ping sends a minimal request to verify connection
func (c *OpenAICompletion) Ping(ctx context.Context) error {
	slog.Info("checking llm connection...")
	_, err := c.client.Completions.New(ctx, openai.CompletionNewParams{
		Model:     openai.CompletionNewParamsModel(c.model),
		Prompt:    openai.CompletionNewParamsPromptUnion{OfString: openai.String("hello")},
		MaxTokens: openai.Int(1),
	})
	if err != nil {
		return fmt.Errorf("llm ping failed: %w", c.wrapError(err))
	}
	slog.Info("llm connection verified")
	return nil
}

// params merges the provider defaults with the per-call options.
// Per-call suffix and stop win unless strict stop handling is on.
func (c *OpenAICompletion) params(prompt string, opts *llm.CompletionOptions) (openai.CompletionNewParams, error) {
	p := openai.CompletionNewParams{
		Model:  openai.CompletionNewParamsModel(c.model),
		Prompt: openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
	}

	d := c.defaults
	if d.MaxTokens > 0 {
		p.MaxTokens = openai.Int(d.MaxTokens)
	}
	if d.Temperature != nil {
		p.Temperature = openai.Float(*d.Temperature)
	}
	if d.TopP != nil {
		p.TopP = openai.Float(*d.TopP)
	}
	if d.FrequencyPenalty != nil {
		p.FrequencyPenalty = openai.Float(*d.FrequencyPenalty)
	}
	if d.PresencePenalty != nil {
		p.PresencePenalty = openai.Float(*d.PresencePenalty)
	}
	if d.User != "" {
		p.User = openai.String(d.User)
	}

	stop := d.Stop
	if opts != nil {
		if opts.Stop != "" {
			if c.strictStop && d.Stop != "" {
				return p, types.ErrConflictingStop
			}
			stop = opts.Stop
		}
		if opts.Suffix != "" {
			p.Suffix = openai.String(opts.Suffix)
		}
	}
	if stop != "" {
		p.Stop = openai.CompletionNewParamsStopUnion{OfString: openai.String(stop)}
	}
	return p, nil
}

// GetCompletion sends prompt and returns the first choice's text.
func (c *OpenAICompletion) GetCompletion(ctx context.Context, prompt string, opts *llm.CompletionOptions) (string, error) {
	if prompt == "" {
		return "", types.ErrEmptyPrompt
	}
	params, err := c.params(prompt, opts)
	if err != nil {
		return "", err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	name := c.Name()
	c.hook.Before(ctx, name, prompt)
	start := time.Now()
	text, err := c.complete(ctx, params)
	c.hook.After(ctx, name, text, time.Since(start), err)
	return text, err
}

func (c *OpenAICompletion) complete(ctx context.Context, params openai.CompletionNewParams) (string, error) {
	resp, err := c.client.Completions.New(ctx, params)
	if err != nil {
		return "", c.wrapError(fmt.Errorf("openai request: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w from OpenAI", types.ErrNoChoices)
	}
	text := resp.Choices[0].Text
	if text == "" {
		return "", fmt.Errorf("%w from OpenAI", types.ErrNoCompletion)
	}
	return text, nil
}

// Generate runs GetCompletion for every prompt; see llm.Generate.
func (c *OpenAICompletion) Generate(ctx context.Context, prompts []string, opts *llm.CompletionOptions) (*llm.Result, error) {
	return llm.Generate(ctx, c, prompts, opts, c.concurrency)
}

// wrapError wraps openai errors into RetryableError if applicable
func (c *OpenAICompletion) wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		statusCode := apiErr.StatusCode
		// 429 (Rate Limit) and 5xx (Server Errors) are retryable
		if statusCode == http.StatusTooManyRequests || (statusCode >= 500 && statusCode < 600) {
			return types.NewRetryableError(err)
		}
	}

	return err
}

var (
	_ llm.Client    = (*OpenAICompletion)(nil)
	_ llm.Generator = (*OpenAICompletion)(nil)
	_ llm.Named     = (*OpenAICompletion)(nil)
)
