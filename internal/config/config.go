package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultMaxBodySize int64 = 1 * 1024 * 1024 // 1MB
	DefaultConfigPath        = "config.yaml"
	DefaultAPIKeyEnv         = "LLM_API_KEY"
)

// CompletionDefaults are provider-level request options merged into every call.
// Pointer fields distinguish "unset" from a zero value.
type CompletionDefaults struct {
	Stop             string   `yaml:"stop"`
	MaxTokens        int64    `yaml:"max_tokens"`
	Temperature      *float64 `yaml:"temperature"`
	TopP             *float64 `yaml:"top_p"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty"`
	PresencePenalty  *float64 `yaml:"presence_penalty"`
	User             string   `yaml:"user"`
}

// LLMConfig selects and configures the completion provider
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, langchain, gemini
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"` // empty uses the provider SDK default
	APIKey   string `yaml:"api_key"`
	// APIKeyEnv names the environment variable the key is read from at load
	// time. Set it to "" to only accept an explicit api_key.
	APIKeyEnv string `yaml:"api_key_env"`
	// AuthHeader also sends the key under this header, for gateways that do
	// not read "Authorization: Bearer".
	AuthHeader       string             `yaml:"auth_header"`
	Headers          map[string]string  `yaml:"headers"` // static headers added to every request
	Timeout          time.Duration      `yaml:"timeout"`
	BatchConcurrency int                `yaml:"batch_concurrency"`
	StrictStop       bool               `yaml:"strict_stop"` // reject per-call stop when a default stop is set
	Defaults         CompletionDefaults `yaml:"defaults"`
}

// PromptsConfig holds configuration for prompt loading
type PromptsConfig struct {
	Dir string `yaml:"dir"` // Root directory for prompt template files
}

// StorageConfig holds configuration for extraction history persistence
type StorageConfig struct {
	Driver  string        `yaml:"driver"`  // sqlite
	DSN     string        `yaml:"dsn"`     // Connection string
	Timeout time.Duration `yaml:"timeout"` // Timeout for storage operations (default: 5s)
}

// MCPConfig controls the MCP tool endpoint
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config holds the configuration for the completion service
type Config struct {
	Log struct {
		Level    string `yaml:"level"`  // DEBUG, INFO, WARN, ERROR
		Format   string `yaml:"format"` // text, json
		Output   string `yaml:"output"` // stdout, stderr, /path/to/file
		Rotation struct {
			MaxSize    int  `yaml:"max_size"`    // Megabytes
			MaxBackups int  `yaml:"max_backups"` // Number of old files to keep
			MaxAge     int  `yaml:"max_age"`     // Days to keep
			Compress   bool `yaml:"compress"`
		} `yaml:"rotation"`
	} `yaml:"log"`

	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		MaxBodySize  int64         `yaml:"max_body_size"`
	} `yaml:"server"`

	LLM LLMConfig `yaml:"llm"`

	Prompts PromptsConfig `yaml:"prompts"`

	Storage StorageConfig `yaml:"storage"`

	MCP MCPConfig `yaml:"mcp"`
}

// GetLogLevel returns the slog.Level based on Log.Level string
func (c *Config) GetLogLevel() slog.Level {
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig loads configuration from YAML file and supplements with environment variables
func LoadConfig() *Config {
	cfg := &Config{}

	// Set some defaults before loading
	cfg.Log.Level = "INFO"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stdout"
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 120 * time.Second
	cfg.Server.MaxBodySize = DefaultMaxBodySize
	cfg.LLM.Provider = ProviderOpenAI
	cfg.LLM.Model = "gpt-3.5-turbo-instruct"
	cfg.LLM.APIKeyEnv = DefaultAPIKeyEnv
	cfg.LLM.Timeout = 60 * time.Second
	cfg.LLM.BatchConcurrency = 1
	cfg.Prompts.Dir = "prompts"
	cfg.MCP.Path = "/mcp"

	// Log Rotation defaults
	cfg.Log.Rotation.MaxSize = 100
	cfg.Log.Rotation.MaxBackups = 10
	cfg.Log.Rotation.MaxAge = 7
	cfg.Log.Rotation.Compress = true

	// Storage defaults
	cfg.Storage.Timeout = 5 * time.Second

	// Try to load from YAML
	configPath := getEnv("CONFIG_PATH", DefaultConfigPath)
	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			slog.Error("unmarshal config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", configPath)
	} else {
		if !os.IsNotExist(err) {
			slog.Error("read config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config not found, using defaults", "path", configPath)
	}

	// The credential is resolved here, once, so providers only ever see an explicit key.
	if cfg.LLM.APIKeyEnv != "" {
		cfg.LLM.APIKey = getEnv(cfg.LLM.APIKeyEnv, cfg.LLM.APIKey)
	}

	cfg.LLM.Provider = getEnv("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.Endpoint = getEnv("LLM_ENDPOINT", cfg.LLM.Endpoint)
	if n := getEnvInt("LLM_BATCH_CONCURRENCY", 0); n != 0 {
		cfg.LLM.BatchConcurrency = n
	}

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.DSN = getEnv("STORAGE_DSN", cfg.Storage.DSN)
	if v, err := strconv.ParseBool(os.Getenv("MCP_ENABLED")); err == nil {
		cfg.MCP.Enabled = v
	}

	if envPort := getEnvInt("PORT", 0); envPort != 0 {
		cfg.Server.Port = envPort
	}
	if envLogLevel := os.Getenv("LOG_LEVEL"); envLogLevel != "" {
		cfg.Log.Level = envLogLevel
	}
	if envLogFormat := os.Getenv("LOG_FORMAT"); envLogFormat != "" {
		cfg.Log.Format = envLogFormat
	}
	if envLogOutput := getEnv("LOG_OUTPUT", ""); envLogOutput != "" {
		cfg.Log.Output = envLogOutput
	}
	if envLogMaxSize := getEnvInt("LOG_MAX_SIZE", 0); envLogMaxSize != 0 {
		cfg.Log.Rotation.MaxSize = envLogMaxSize
	}
	if envLogMaxBackups := getEnvInt("LOG_MAX_BACKUPS", 0); envLogMaxBackups != 0 {
		cfg.Log.Rotation.MaxBackups = envLogMaxBackups
	}
	if envLogMaxAge := getEnvInt("LOG_MAX_AGE", 0); envLogMaxAge != 0 {
		cfg.Log.Rotation.MaxAge = envLogMaxAge
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.LLM.APIKey == "" {
		if c.LLM.APIKeyEnv != "" {
			errs = append(errs, c.LLM.APIKeyEnv+" is required")
		} else {
			errs = append(errs, "llm.api_key is required")
		}
	}
	if c.LLM.Model == "" {
		errs = append(errs, "llm.model is required")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderLangChain, ProviderGemini:
	default:
		errs = append(errs, fmt.Sprintf("unknown llm provider: %q", c.LLM.Provider))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid server port: %d", c.Server.Port))
	}

	if c.Storage.Driver != "" && c.Storage.Driver != StorageSQLite {
		errs = append(errs, fmt.Sprintf("unknown storage driver: %q", c.Storage.Driver))
	}
	if c.Storage.Driver != "" && c.Storage.DSN == "" {
		errs = append(errs, "storage.dsn is required")
	}
	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		errs = append(errs, fmt.Sprintf("invalid mcp path: %q", c.MCP.Path))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
