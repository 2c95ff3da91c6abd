package config

import "time"

// Config is the top-level configuration parsed from ragdebug YAML.
type Config struct {
	MaxAttempts int             `yaml:"max_attempts" validate:"min=1,max=50"`
	Pacing      string          `yaml:"pacing"`
	Sandbox     SandboxConfig   `yaml:"sandbox"`
	LLM         LLMConfig       `yaml:"llm"`
	Retrieval   RetrievalConfig `yaml:"retrieval"`
	Ingest      IngestConfig    `yaml:"ingest"`
	Prompts     PromptsConfig   `yaml:"prompts"`
	Server      ServerConfig    `yaml:"server"`
}

// SandboxConfig selects where generated patches are executed.
type SandboxConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=local docker"`
	Image       string `yaml:"image" validate:"required"`
	Timeout     string `yaml:"timeout"`
	Interpreter string `yaml:"interpreter" validate:"required"`
}

// LLMConfig configures the reasoning collaborator used by the diagnosis and patch stages.
type LLMConfig struct {
	Provider          string  `yaml:"provider" validate:"oneof=anthropic openai"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url" validate:"omitempty,url"`
	Temperature       float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens         int     `yaml:"max_tokens" validate:"min=1"`
	MaxRetries        int     `yaml:"max_retries" validate:"min=0,max=10"`
	RequestsPerMinute int     `yaml:"requests_per_minute" validate:"min=0"`
}

// RetrievalConfig selects and configures the document store.
type RetrievalConfig struct {
	Backend       string `yaml:"backend" validate:"oneof=sqlite postgres weaviate none"`
	TopK          int    `yaml:"top_k" validate:"min=1,max=100"`
	SQLitePath    string `yaml:"sqlite_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	WeaviateURL   string `yaml:"weaviate_url" validate:"omitempty,url"`
	WeaviateClass string `yaml:"weaviate_class"`
}

// IngestConfig controls how documents are discovered and chunked.
type IngestConfig struct {
	DocsPath     string   `yaml:"docs_path"`
	ChunkSize    int      `yaml:"chunk_size" validate:"min=1"`
	ChunkOverlap int      `yaml:"chunk_overlap" validate:"min=0"`
	Patterns     []string `yaml:"patterns"`
}

// PromptsConfig points at an optional directory of template overrides.
type PromptsConfig struct {
	TemplateDir string `yaml:"template_dir"`
}

// ServerConfig configures the web form.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// PacingDuration returns the delay between attempts.
func (c *Config) PacingDuration() time.Duration {
	return durationOr(c.Pacing, DefaultPacing)
}

// TimeoutDuration returns the per-execution timeout.
func (s SandboxConfig) TimeoutDuration() time.Duration {
	return durationOr(s.Timeout, DefaultSandboxTimeout)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
