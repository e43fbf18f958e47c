// Package llm defines the provider-neutral completion contract.
package llm

import (
	"context"
)

// CompletionOptions are per-call knobs passed through to the provider.
// An empty field means "not set"; provider defaults apply.
type CompletionOptions struct {
	// Suffix is text that comes after the completion, framing its shape.
	Suffix string `json:"suffix,omitempty"`
	// Stop halts generation when produced.
	Stop string `json:"stop,omitempty"`
}

// Client is the capability every completion provider implements.
type Client interface {
	// GetCompletion issues exactly one request for prompt and returns the
	// first choice's text, which is never empty on success.
	GetCompletion(ctx context.Context, prompt string, opts *CompletionOptions) (string, error)
}

// Generator is implemented by providers that expose the batch form.
type Generator interface {
	Generate(ctx context.Context, prompts []string, opts *CompletionOptions) (*Result, error)
}

// Named is implemented by providers that can describe themselves for logs and metrics.
type Named interface {
	Name() string
}

// NameOf returns c's name, or "llm" when it does not implement Named.
func NameOf(c Client) string {
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	return "llm"
}
