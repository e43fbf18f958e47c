package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"completion-kit/internal/config"
	"completion-kit/internal/llm"
	"completion-kit/internal/types"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient adapts any LangChainGo model to llm.Client.
// Chat models have no suffix parameter, so CompletionOptions.Suffix is dropped.
type LangChainClient struct {
	model       llms.Model
	name        string
	defaults    config.CompletionDefaults
	strictStop  bool
	timeout     time.Duration
	concurrency int
	hook        llm.Hook
}

// NewLangChainClient wraps model. name is used for logs and metrics.
func NewLangChainClient(model llms.Model, name string, cfg config.LLMConfig, opts ...Option) (*LangChainClient, error) {
	if model == nil {
		return nil, types.NewConfigError("model", "langchain model is nil")
	}
	if name == "" {
		name = "langchain"
	}
	s := newSettings(opts)
	return &LangChainClient{
		model:       model,
		name:        name,
		defaults:    cfg.Defaults,
		strictStop:  cfg.StrictStop,
		timeout:     cfg.Timeout,
		concurrency: cfg.BatchConcurrency,
		hook:        s.hook,
	}, nil
}

// NewLangChainOpenAI builds a LangChainGo OpenAI chat model from config and wraps it.
func NewLangChainOpenAI(cfg config.LLMConfig, opts ...Option) (*LangChainClient, error) {
	if cfg.APIKey == "" {
		return nil, types.NewConfigError("api_key", "no OpenAI API key provided")
	}
	if cfg.Model == "" {
		return nil, types.NewConfigError("model", "no model name provided")
	}

	lcOpts := []lcopenai.Option{
		lcopenai.WithModel(cfg.Model),
		lcopenai.WithToken(cfg.APIKey),
	}
	if cfg.Endpoint != "" {
		lcOpts = append(lcOpts, lcopenai.WithBaseURL(cfg.Endpoint))
	}
	if s := newSettings(opts); s.httpClient != nil {
		lcOpts = append(lcOpts, lcopenai.WithHTTPClient(s.httpClient))
	}
	model, err := lcopenai.New(lcOpts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain llm: %w", err)
	}
	return NewLangChainClient(model, "langchain-"+cfg.Model, cfg, opts...)
}

// Name returns the provider name
func (c *LangChainClient) Name() string {
	return c.name
}

func (c *LangChainClient) callOptions(opts *llm.CompletionOptions) ([]llms.CallOption, error) {
	var callOpts []llms.CallOption
	d := c.defaults
	if d.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(int(d.MaxTokens)))
	}
	if d.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(*d.Temperature))
	}
	if d.TopP != nil {
		callOpts = append(callOpts, llms.WithTopP(*d.TopP))
	}

	stop := d.Stop
	if opts != nil {
		if opts.Stop != "" {
			if c.strictStop && d.Stop != "" {
				return nil, types.ErrConflictingStop
			}
			stop = opts.Stop
		}
		if opts.Suffix != "" {
			slog.Debug("langchain: suffix not supported, ignoring", "provider", c.name)
		}
	}
	if stop != "" {
		callOpts = append(callOpts, llms.WithStopWords([]string{stop}))
	}
	return callOpts, nil
}

// GetCompletion sends prompt as a single human message and returns the first choice's content.
func (c *LangChainClient) GetCompletion(ctx context.Context, prompt string, opts *llm.CompletionOptions) (string, error) {
	if prompt == "" {
		return "", types.ErrEmptyPrompt
	}
	callOpts, err := c.callOptions(opts)
	if err != nil {
		return "", err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.hook.Before(ctx, c.name, prompt)
	start := time.Now()
	text, err := c.complete(ctx, prompt, callOpts)
	c.hook.After(ctx, c.name, text, time.Since(start), err)
	return text, err
}

func (c *LangChainClient) complete(ctx context.Context, prompt string, callOpts []llms.CallOption) (string, error) {
	resp, err := c.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, callOpts...)
	if err != nil {
		return "", fmt.Errorf("langchain request: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%w from %s", types.ErrNoChoices, c.name)
	}
	text := resp.Choices[0].Content
	if text == "" {
		return "", fmt.Errorf("%w from %s", types.ErrNoCompletion, c.name)
	}
	return text, nil
}

// Generate runs GetCompletion for every prompt; see llm.Generate.
func (c *LangChainClient) Generate(ctx context.Context, prompts []string, opts *llm.CompletionOptions) (*llm.Result, error) {
	return llm.Generate(ctx, c, prompts, opts, c.concurrency)
}

var (
	_ llm.Client    = (*LangChainClient)(nil)
	_ llm.Generator = (*LangChainClient)(nil)
)
