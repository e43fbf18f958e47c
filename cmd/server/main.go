package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"completion-kit/internal/client"
	"completion-kit/internal/config"
	"completion-kit/internal/llm"
	"completion-kit/internal/metrics"
	"completion-kit/internal/prompt"
	"completion-kit/internal/server"
	"completion-kit/internal/storage"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Load .env: %v\n", err)
	}

	// Load configuration first
	cfg := config.LoadConfig()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup structured logging with configurable level, format, and output
	logger, logCleanup := setupLogger(cfg)
	defer logCleanup()
	slog.SetDefault(logger)

	// Create LLM once at startup
	hook := llm.Hooks(llm.SlogHook{Logger: logger}, metrics.Hook{})
	completer, err := client.NewLLM(context.Background(), cfg, client.WithHook(hook))
	if err != nil {
		slog.Error("create llm failed", "error", err)
		os.Exit(1)
	}
	slog.Info("llm initialized", "provider", llm.NameOf(completer))

	// Verify LLM connection
	if checker, ok := completer.(interface{ Ping(context.Context) error }); ok {
		if err := checker.Ping(context.Background()); err != nil {
			slog.Error("llm health check failed", "error", err)
			os.Exit(1)
		}
	}

	// Initialize storage
	var store storage.Repository
	if cfg.Storage.Driver == config.StorageSQLite {
		repo, err := storage.NewSQLiteRepository(cfg.Storage.DSN)
		if err != nil {
			slog.Error("init storage failed", "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		store = repo
	}

	srv := server.New(cfg, completer, prompt.NewLoader(cfg.Prompts.Dir), store, prompt.NewObjectFromType())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server start failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("server stopping")

	// Give in-flight completions time to finish
	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout+5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("server shutdown forced", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg *config.Config) (*slog.Logger, func()) {
	var writers []io.Writer
	var closers []io.Closer
	outputs := strings.Split(cfg.Log.Output, ",")

	for _, output := range outputs {
		output = strings.TrimSpace(output)
		if output == "" {
			continue
		}

		var w io.Writer
		switch output {
		case "stderr":
			w = os.Stderr
		case "stdout":
			w = os.Stdout
		default:
			// Use lumberjack for log rotation
			l := &lumberjack.Logger{
				Filename:   output,
				MaxSize:    cfg.Log.Rotation.MaxSize,
				MaxBackups: cfg.Log.Rotation.MaxBackups,
				MaxAge:     cfg.Log.Rotation.MaxAge,
				Compress:   cfg.Log.Rotation.Compress,
			}
			w = l
			closers = append(closers, l)
		}
		writers = append(writers, w)
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	multiWriter := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{Level: cfg.GetLogLevel()}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(multiWriter, opts)
	} else {
		handler = slog.NewTextHandler(multiWriter, opts)
	}

	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	return slog.New(handler), cleanup
}
