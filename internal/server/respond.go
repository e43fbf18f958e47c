package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"completion-kit/internal/storage"
	"completion-kit/internal/types"

	"github.com/tidwall/sjson"
)

// badRequestError marks caller mistakes that map to 400.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

// statusFor maps an error kind to the HTTP status returned to callers.
func statusFor(err error) int {
	var (
		br  *badRequestError
		ce  *types.ConfigError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, errHistoryDisabled):
		return http.StatusNotFound
	case errors.As(err, &br),
		errors.As(err, &ce),
		errors.Is(err, types.ErrEmptyPrompt),
		errors.Is(err, types.ErrConflictingStop):
		return http.StatusBadRequest
	case types.IsRetryable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// writeJSON writes an already encoded JSON body.
func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// writeError writes {"error": msg} with the status derived from err.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorStatus(w, r, statusFor(err), err)
}

func writeErrorStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		slog.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	body, _ := sjson.SetBytes([]byte(`{}`), "error", err.Error())
	writeJSON(w, status, body)
}

// parseLimit reads ?limit=N, clamped to [1, maxLimit].
func parseLimit(r *http.Request, def, maxLimit int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
