package client

import (
	"net/http"

	"completion-kit/internal/llm"
)

type settings struct {
	hook       llm.Hook
	httpClient *http.Client
}

// Option customizes a provider at construction time.
type Option func(*settings)

// WithHook sets the observability hook. Without it providers trace through slog at debug level.
func WithHook(h llm.Hook) Option {
	return func(s *settings) { s.hook = h }
}

// WithHTTPClient overrides the HTTP client used by the provider SDK.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

func newSettings(opts []Option) settings {
	var s settings
	for _, o := range opts {
		o(&s)
	}
	if s.hook == nil {
		s.hook = llm.SlogHook{}
	}
	return s
}
