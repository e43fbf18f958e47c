package llm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingHook struct {
	before, after int
	lastErr       error
}

func (h *countingHook) Before(context.Context, string, string) { h.before++ }
func (h *countingHook) After(_ context.Context, _, _ string, _ time.Duration, err error) {
	h.after++
	h.lastErr = err
}

func TestHooks_CombinesAndSkipsNil(t *testing.T) {
	a, b := &countingHook{}, &countingHook{}
	h := Hooks(a, nil, b)

	h.Before(context.Background(), "p", "prompt")
	h.After(context.Background(), "p", "", time.Millisecond, errors.New("x"))

	for _, c := range []*countingHook{a, b} {
		assert.Equal(t, 1, c.before)
		assert.Equal(t, 1, c.after)
		assert.EqualError(t, c.lastErr, "x")
	}
}

func TestHooks_DefaultsToSlog(t *testing.T) {
	assert.IsType(t, SlogHook{}, Hooks())
	single := &countingHook{}
	assert.Same(t, single, Hooks(nil, single))
}

func TestSlogHook_LogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := SlogHook{Logger: logger}

	h.Before(context.Background(), "openai-test", "hello")
	h.After(context.Background(), "openai-test", "world", time.Second, nil)
	h.After(context.Background(), "openai-test", "", time.Second, errors.New("down"))

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "completion query started")
	assert.Contains(t, out, "completion query finished")
	assert.Contains(t, out, "completion query failed")
	assert.Contains(t, out, "provider=openai-test")
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "llm", NameOf(&echoClient{}))
}
