package metrics

import (
	"context"
	"errors"
	"time"

	"completion-kit/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CompletionRequests counts completion calls, labeled by provider and status.
	CompletionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "completion_requests_total",
		Help: "The total number of completion requests sent to providers",
	}, []string{"provider", "status"}) // status: success, no_choices, no_completion, retryable, error

	// CompletionDuration measures provider latency.
	CompletionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "completion_duration_seconds",
		Help:    "Time taken by a single completion request",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	// Extractions counts structured extraction runs, labeled by result.
	Extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "extractions_total",
		Help: "The total number of structured extraction runs",
	}, []string{"result"}) // result: success, completion_failed, parse_failed

	// HTTPRequests counts API requests by route pattern and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_requests_total",
		Help: "The total number of API requests",
	}, []string{"route", "code"})
)

// Status maps a completion error to its metric label.
func Status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, types.ErrNoChoices):
		return "no_choices"
	case errors.Is(err, types.ErrNoCompletion):
		return "no_completion"
	case types.IsRetryable(err):
		return "retryable"
	default:
		return "error"
	}
}

// Hook records request counts and latency for every completion call.
// It satisfies llm.Hook.
type Hook struct{}

func (Hook) Before(context.Context, string, string) {}

func (Hook) After(_ context.Context, provider, _ string, elapsed time.Duration, err error) {
	CompletionRequests.WithLabelValues(provider, Status(err)).Inc()
	CompletionDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}
