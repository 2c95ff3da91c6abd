package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Built-in defaults.
const (
	DefaultMaxAttempts    = 3
	DefaultPacing         = 500 * time.Millisecond
	DefaultSandboxTimeout = 20 * time.Second
	DefaultImage          = "python:3.11-slim"
	DefaultTopK           = 6
)

// DefaultPatterns are the document globs picked up by ingest.
var DefaultPatterns = []string{"**/*.txt", "**/*.md", "**/*.log"}

// Default returns the built-in configuration with environment overrides applied.
func Default() *Config {
	cfg := newConfig()
	applyDefaults(cfg)
	applyEnv(cfg, os.Getenv)
	return cfg
}

// Load reads and parses a configuration from the given YAML file path.
// Unset keys get defaults, then environment overrides are applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := newConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)
	applyEnv(cfg, os.Getenv)
	return cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./ragdebug.yaml, ~/.ragdebug/config.yaml.
// When none exists the built-in defaults are returned.
func LoadDefault() (*Config, error) {
	candidates := []string{"ragdebug.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".ragdebug", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// newConfig presets the keys for which zero is a meaningful value, so YAML
// can still set them to zero.
func newConfig() *Config {
	return &Config{
		LLM:    LLMConfig{Temperature: 0.5, MaxRetries: 2},
		Ingest: IngestConfig{ChunkOverlap: 100},
	}
}

// applyDefaults fills every other unset key with its built-in value.
func applyDefaults(cfg *Config) {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Pacing == "" {
		cfg.Pacing = DefaultPacing.String()
	}

	s := &cfg.Sandbox
	if s.Backend == "" {
		s.Backend = "local"
	}
	if s.Image == "" {
		s.Image = DefaultImage
	}
	if s.Timeout == "" {
		s.Timeout = DefaultSandboxTimeout.String()
	}
	if s.Interpreter == "" {
		s.Interpreter = "python"
	}

	l := &cfg.LLM
	if l.Provider == "" {
		l.Provider = "anthropic"
	}
	if l.Model == "" {
		l.Model = defaultModel(l.Provider)
	}
	if l.MaxTokens == 0 {
		l.MaxTokens = 2048
	}

	r := &cfg.Retrieval
	if r.Backend == "" {
		r.Backend = "sqlite"
	}
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}
	if r.SQLitePath == "" {
		r.SQLitePath = "~/.ragdebug/docs.db"
	}
	r.SQLitePath = expandHome(r.SQLitePath)
	if r.WeaviateClass == "" {
		r.WeaviateClass = "Document"
	}

	in := &cfg.Ingest
	if in.DocsPath == "" {
		in.DocsPath = "data/docs"
	}
	if in.ChunkSize == 0 {
		in.ChunkSize = 800
	}
	if len(in.Patterns) == 0 {
		in.Patterns = append([]string(nil), DefaultPatterns...)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

// applyEnv applies the supported environment overrides.
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("USE_DOCKER_SANDBOX"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			if on {
				cfg.Sandbox.Backend = "docker"
			} else {
				cfg.Sandbox.Backend = "local"
			}
		}
	}
	if v := getenv("SANDBOX_DOCKER_IMAGE"); v != "" {
		cfg.Sandbox.Image = v
	}
	if v := getenv("MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxAttempts = n
		}
	}
	if v := getenv("EXECUTION_TIMEOUT"); v != "" {
		cfg.Sandbox.Timeout = normalizeTimeout(v)
	}

	providerChanged := false
	if v := getenv("RAGDEBUG_LLM_PROVIDER"); v != "" && v != cfg.LLM.Provider {
		cfg.LLM.Provider = v
		providerChanged = true
	}
	if v := getenv("RAGDEBUG_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	} else if providerChanged {
		cfg.LLM.Model = defaultModel(cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			cfg.LLM.APIKey = getenv("ANTHROPIC_API_KEY")
		case "openai":
			cfg.LLM.APIKey = getenv("OPENAI_API_KEY")
		}
	}

	if v := getenv("RAGDEBUG_RETRIEVAL_BACKEND"); v != "" {
		cfg.Retrieval.Backend = v
	}
	if v := getenv("RAGDEBUG_POSTGRES_DSN"); v != "" {
		cfg.Retrieval.PostgresDSN = v
	}
	if v := getenv("WEAVIATE_URL"); v != "" {
		cfg.Retrieval.WeaviateURL = v
	}
}

// normalizeTimeout accepts whole seconds ("20") or a Go duration ("1m").
func normalizeTimeout(v string) string {
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return (time.Duration(n) * time.Second).String()
	}
	return v
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	default:
		return "claude-3-5-sonnet-latest"
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Redacted returns a copy safe to print: secrets are masked.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Ingest.Patterns = append([]string(nil), c.Ingest.Patterns...)
	if cp.LLM.APIKey != "" {
		cp.LLM.APIKey = "***"
	}
	if cp.Retrieval.PostgresDSN != "" {
		cp.Retrieval.PostgresDSN = "***"
	}
	return &cp
}
