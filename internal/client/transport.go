package client

import (
	"net/http"
	"time"

	"completion-kit/internal/config"
)

// HeaderRoundTripper wraps http.RoundTripper to inject the credential under a
// custom header plus any static headers. Gateways that do not read
// "Authorization: Bearer" need this.
type HeaderRoundTripper struct {
	Base       http.RoundTripper
	Token      string
	AuthHeader string
	Headers    map[string]string
}

// RoundTrip implements http.RoundTripper
func (t *HeaderRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}
	if t.Token != "" && t.AuthHeader != "" {
		req.Header.Set(t.AuthHeader, t.Token)
	}
	if t.Base == nil {
		return http.DefaultTransport.RoundTrip(req)
	}
	return t.Base.RoundTrip(req)
}

// httpClientFor returns a client carrying the configured extra headers, or nil
// when the SDK default client is enough.
func httpClientFor(cfg config.LLMConfig) *http.Client {
	if cfg.AuthHeader == "" && len(cfg.Headers) == 0 {
		return nil
	}
	return &http.Client{
		Transport: &HeaderRoundTripper{
			Base:       http.DefaultTransport,
			Token:      cfg.APIKey,
			AuthHeader: cfg.AuthHeader,
			Headers:    cfg.Headers,
		},
		// Per-request deadlines come from the provider timeout; this only
		// bounds a stuck connection.
		Timeout: cfg.Timeout + 30*time.Second,
	}
}
