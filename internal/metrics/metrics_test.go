package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"completion-kit/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{fmt.Errorf("openai: %w", types.ErrNoChoices), "no_choices"},
		{fmt.Errorf("openai: %w", types.ErrNoCompletion), "no_completion"},
		{types.NewRetryableError(errors.New("429")), "retryable"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err))
	}
}

func TestHook_RecordsCompletion(t *testing.T) {
	provider := "metrics-test-provider"
	before := testutil.ToFloat64(CompletionRequests.WithLabelValues(provider, "success"))

	var h Hook
	h.Before(context.Background(), provider, "prompt")
	h.After(context.Background(), provider, "text", 10*time.Millisecond, nil)

	after := testutil.ToFloat64(CompletionRequests.WithLabelValues(provider, "success"))
	assert.Equal(t, before+1, after)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(CompletionDuration), 1)
}
