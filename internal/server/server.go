// Package server exposes completions and structured extraction over HTTP and MCP.
package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"completion-kit/internal/config"
	"completion-kit/internal/llm"
	"completion-kit/internal/metrics"
	"completion-kit/internal/prompt"
	"completion-kit/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the dependencies shared by every handler.
type Server struct {
	cfg       *config.Config
	llm       llm.Client
	loader    *prompt.Loader
	extractor *prompt.ObjectFromType
	store     storage.Repository // nil when history is disabled
	mcp       *mcp.Server
}

// New creates a Server. store may be nil.
func New(cfg *config.Config, c llm.Client, loader *prompt.Loader, store storage.Repository, extractor *prompt.ObjectFromType) *Server {
	if extractor == nil {
		extractor = prompt.NewObjectFromType()
	}
	s := &Server{
		cfg:       cfg,
		llm:       c,
		loader:    loader,
		extractor: extractor,
		store:     store,
	}
	s.mcp = s.newMCPServer()
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/health/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limitBody)
		r.Post("/completions", s.handleCompletion)
		r.Post("/completions/batch", s.handleBatch)
		r.Post("/extractions", s.handleExtraction)
		r.Get("/extractions", s.handleListExtractions)
		r.Get("/extractions/{id}", s.handleGetExtraction)
	})

	if s.cfg.MCP.Enabled {
		h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
		r.Handle(s.cfg.MCP.Path, h)
		slog.Info("mcp endpoint enabled", "path", s.cfg.MCP.Path, "tool", config.ToolObjectFromType)
	}

	return r
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		http.Error(w, "LLM Unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.MaxBodySize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// instrument logs each request and counts it by route pattern and status code.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		slog.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
