package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Clear environment variables to test defaults
	os.Unsetenv("LLM_API_KEY")
	os.Unsetenv("LLM_PROVIDER")
	os.Unsetenv("LLM_MODEL")
	os.Unsetenv("LLM_ENDPOINT")
	os.Unsetenv("PORT")
	os.Unsetenv("CONFIG_PATH")

	cfg := LoadConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("expected read timeout 10s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.MaxBodySize != 1024*1024 {
		t.Errorf("expected max body size 1MB, got %d", cfg.Server.MaxBodySize)
	}
	if cfg.LLM.Provider != ProviderOpenAI {
		t.Errorf("expected provider openai, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKeyEnv != DefaultAPIKeyEnv {
		t.Errorf("expected api key env %s, got %s", DefaultAPIKeyEnv, cfg.LLM.APIKeyEnv)
	}
	if cfg.LLM.BatchConcurrency != 1 {
		t.Errorf("expected batch concurrency 1, got %d", cfg.LLM.BatchConcurrency)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("expected empty api key, got %s", cfg.LLM.APIKey)
	}
	if cfg.LLM.Endpoint != "" {
		t.Errorf("expected empty endpoint so each provider uses its own, got %s", cfg.LLM.Endpoint)
	}
}

func TestLoadConfig_APIKeyFromEnv(t *testing.T) {
	os.Unsetenv("CONFIG_PATH")
	t.Setenv("LLM_API_KEY", "env-key")

	cfg := LoadConfig()

	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("expected api key from env, got %q", cfg.LLM.APIKey)
	}
}

func writeConfig(t *testing.T, content string) {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", tmpfile.Name())
}

func TestLoadConfig_YAML(t *testing.T) {
	os.Unsetenv("LLM_API_KEY")
	os.Unsetenv("LLM_MODEL")
	writeConfig(t, `
log:
  level: DEBUG
server:
  port: 1234
llm:
  provider: gemini
  model: custom-model
  strict_stop: true
  batch_concurrency: 4
  defaults:
    stop: "###"
    max_tokens: 256
    temperature: 0.2
storage:
  driver: sqlite
  dsn: ":memory:"
`)

	cfg := LoadConfig()

	if cfg.Log.Level != "DEBUG" {
		t.Errorf("expected Log.Level DEBUG, got %s", cfg.Log.Level)
	}
	if cfg.Server.Port != 1234 {
		t.Errorf("expected Port 1234, got %d", cfg.Server.Port)
	}
	if cfg.LLM.Provider != ProviderGemini {
		t.Errorf("expected provider gemini, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Endpoint != "" {
		t.Errorf("expected no endpoint for gemini, got %s", cfg.LLM.Endpoint)
	}
	if cfg.LLM.Model != "custom-model" {
		t.Errorf("expected LLM Model custom-model, got %s", cfg.LLM.Model)
	}
	if !cfg.LLM.StrictStop {
		t.Error("expected strict_stop to be true")
	}
	if cfg.LLM.BatchConcurrency != 4 {
		t.Errorf("expected batch concurrency 4, got %d", cfg.LLM.BatchConcurrency)
	}
	if cfg.LLM.Defaults.Stop != "###" || cfg.LLM.Defaults.MaxTokens != 256 {
		t.Errorf("unexpected defaults: %+v", cfg.LLM.Defaults)
	}
	if cfg.LLM.Defaults.Temperature == nil || *cfg.LLM.Defaults.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", cfg.LLM.Defaults.Temperature)
	}
	if cfg.LLM.Defaults.TopP != nil {
		t.Errorf("expected top_p unset, got %v", *cfg.LLM.Defaults.TopP)
	}
	if cfg.Storage.Driver != StorageSQLite {
		t.Errorf("expected sqlite storage, got %s", cfg.Storage.Driver)
	}
}

func TestLoadConfig_StorageAndMCPEnv(t *testing.T) {
	writeConfig(t, `
storage:
  driver: sqlite
  dsn: yaml.db
`)
	t.Setenv("STORAGE_DSN", "env.db")
	t.Setenv("MCP_ENABLED", "true")

	cfg := LoadConfig()

	if cfg.Storage.DSN != "env.db" {
		t.Errorf("expected STORAGE_DSN to override yaml, got %q", cfg.Storage.DSN)
	}
	if !cfg.MCP.Enabled || cfg.MCP.Path != "/mcp" {
		t.Errorf("expected mcp enabled on /mcp, got %+v", cfg.MCP)
	}
}

func TestLoadConfig_ExplicitKeyOnly(t *testing.T) {
	t.Setenv("LLM_API_KEY", "env-key")
	writeConfig(t, `
llm:
  api_key: yaml-key
  api_key_env: ""
`)

	cfg := LoadConfig()

	if cfg.LLM.APIKey != "yaml-key" {
		t.Errorf("expected explicit key to win when api_key_env is empty, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadConfig_CustomKeyEnv(t *testing.T) {
	t.Setenv("MY_OPENAI_KEY", "custom")
	writeConfig(t, `
llm:
  api_key_env: MY_OPENAI_KEY
`)

	cfg := LoadConfig()

	if cfg.LLM.APIKey != "custom" {
		t.Errorf("expected key from MY_OPENAI_KEY, got %q", cfg.LLM.APIKey)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Server.Port = 8080
		cfg.LLM.Provider = ProviderOpenAI
		cfg.LLM.Model = "gpt-3.5-turbo-instruct"
		cfg.LLM.APIKey = "key"
		cfg.LLM.APIKeyEnv = DefaultAPIKeyEnv
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing key", mutate: func(c *Config) { c.LLM.APIKey = "" }, wantErr: "LLM_API_KEY is required"},
		{name: "missing explicit key", mutate: func(c *Config) { c.LLM.APIKey = ""; c.LLM.APIKeyEnv = "" }, wantErr: "llm.api_key is required"},
		{name: "missing model", mutate: func(c *Config) { c.LLM.Model = "" }, wantErr: "llm.model is required"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "cohere" }, wantErr: "unknown llm provider"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "invalid server port"},
		{name: "bad storage", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: "unknown storage driver"},
		{name: "storage without dsn", mutate: func(c *Config) { c.Storage.Driver = StorageSQLite }, wantErr: "storage.dsn is required"},
		{name: "bad mcp path", mutate: func(c *Config) { c.MCP.Enabled = true; c.MCP.Path = "mcp" }, wantErr: "invalid mcp path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetLogLevel(t *testing.T) {
	cfg := &Config{}
	for level, want := range map[string]string{"debug": "DEBUG", "WARNING": "WARN", "error": "ERROR", "": "INFO"} {
		cfg.Log.Level = level
		if got := cfg.GetLogLevel().String(); got != want {
			t.Errorf("GetLogLevel(%q) = %s, want %s", level, got, want)
		}
	}
}
