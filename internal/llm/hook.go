package llm

import (
	"context"
	"log/slog"
	"time"
)

// Hook observes completion calls. Providers call Before right before the
// outbound request and After once it returns, whatever the outcome, with the
// time the request took.
// Hooks are for observability only and must not influence control flow.
type Hook interface {
	Before(ctx context.Context, provider, prompt string)
	After(ctx context.Context, provider, completion string, elapsed time.Duration, err error)
}

// NopHook ignores every event.
type NopHook struct{}

func (NopHook) Before(context.Context, string, string)                      {}
func (NopHook) After(context.Context, string, string, time.Duration, error) {}

// SlogHook traces calls at debug level.
type SlogHook struct {
	Logger *slog.Logger
}

func (h SlogHook) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h SlogHook) Before(ctx context.Context, provider, prompt string) {
	h.logger().DebugContext(ctx, "completion query started", "provider", provider, "prompt", prompt)
}

func (h SlogHook) After(ctx context.Context, provider, completion string, elapsed time.Duration, err error) {
	if err != nil {
		h.logger().DebugContext(ctx, "completion query failed", "provider", provider, "duration", elapsed, "error", err)
		return
	}
	h.logger().DebugContext(ctx, "completion query finished", "provider", provider, "duration", elapsed, "completion", completion)
}

// MultiHook fans events out to every hook in order.
type MultiHook []Hook

func (m MultiHook) Before(ctx context.Context, provider, prompt string) {
	for _, h := range m {
		h.Before(ctx, provider, prompt)
	}
}

func (m MultiHook) After(ctx context.Context, provider, completion string, elapsed time.Duration, err error) {
	for _, h := range m {
		h.After(ctx, provider, completion, elapsed, err)
	}
}

// Hooks combines hooks, dropping nils. It returns SlogHook when none remain.
func Hooks(hooks ...Hook) Hook {
	var out MultiHook
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	switch len(out) {
	case 0:
		return SlogHook{}
	case 1:
		return out[0]
	}
	return out
}
