package client

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"completion-kit/internal/config"
	"completion-kit/internal/llm"
	"completion-kit/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newGeminiServer(t *testing.T, response string, captured *[]byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		*captured = body
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(response))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestGeminiClient_GetCompletion(t *testing.T) {
	var body []byte
	ts := newGeminiServer(t, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"key\":"},{"text":"\"value\"}"}]}}]}`, &body)

	g, err := NewGeminiClient(context.Background(), config.LLMConfig{
		APIKey:   "test-key",
		Model:    "gemini-test",
		Endpoint: ts.URL,
		Defaults: config.CompletionDefaults{MaxTokens: 128},
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini-gemini-test", g.Name())

	text, err := g.GetCompletion(context.Background(), "prompt", &llm.CompletionOptions{Suffix: "`", Stop: "`"})
	require.NoError(t, err)
	assert.Equal(t, `{"key":"value"}`, text)

	assert.Equal(t, "prompt", gjson.GetBytes(body, "contents.0.parts.0.text").String())
	assert.Equal(t, "`", gjson.GetBytes(body, "generationConfig.stopSequences.0").String())
	assert.EqualValues(t, 128, gjson.GetBytes(body, "generationConfig.maxOutputTokens").Int())
}

func TestGeminiClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     error
	}{
		{name: "no candidates", response: `{}`, want: types.ErrNoChoices},
		{name: "no content", response: `{"candidates":[{"finishReason":"SAFETY"}]}`, want: types.ErrNoCompletion},
		{name: "empty text", response: `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`, want: types.ErrNoCompletion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			ts := newGeminiServer(t, tt.response, &body)
			g, err := NewGeminiClient(context.Background(), config.LLMConfig{APIKey: "k", Model: "gemini-test", Endpoint: ts.URL})
			require.NoError(t, err)

			_, err = g.GetCompletion(context.Background(), "prompt", nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewGeminiClient_Validation(t *testing.T) {
	var cfgErr *types.ConfigError

	_, err := NewGeminiClient(context.Background(), config.LLMConfig{Model: "gemini-test"})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "api_key", cfgErr.Field)

	_, err = NewGeminiClient(context.Background(), config.LLMConfig{APIKey: "k"})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "model", cfgErr.Field)
}

func TestGeminiClient_ClampsMaxTokens(t *testing.T) {
	g := &GeminiClient{model: "gemini-test", defaults: config.CompletionDefaults{MaxTokens: math.MaxInt32 + 10}}

	gc, err := g.generateConfig(nil)
	require.NoError(t, err)
	assert.EqualValues(t, math.MaxInt32, gc.MaxOutputTokens)
}
