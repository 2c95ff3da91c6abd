package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
max_attempts: 4
pacing: 250ms
sandbox:
  backend: docker
  image: python:3.12-slim
  timeout: 30s
llm:
  provider: openai
  model: gpt-4o
  temperature: 0.2
  max_tokens: 1024
retrieval:
  backend: sqlite
  top_k: 4
  sqlite_path: /tmp/docs.db
ingest:
  docs_path: docs
  chunk_size: 500
  chunk_overlap: 50
  patterns:
    - "**/*.md"
prompts:
  template_dir: prompts
`

// clearEnv blanks every override so the host environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"USE_DOCKER_SANDBOX", "SANDBOX_DOCKER_IMAGE", "MAX_ATTEMPTS", "EXECUTION_TIMEOUT",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "RAGDEBUG_LLM_PROVIDER", "RAGDEBUG_LLM_MODEL",
		"RAGDEBUG_RETRIEVAL_BACKEND", "RAGDEBUG_POSTGRES_DSN", "WEAVIATE_URL",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ragdebug.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.PacingDuration())
	assert.Equal(t, "docker", cfg.Sandbox.Backend)
	assert.Equal(t, "python:3.12-slim", cfg.Sandbox.Image)
	assert.Equal(t, 30*time.Second, cfg.Sandbox.TimeoutDuration())
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, []string{"**/*.md"}, cfg.Ingest.Patterns)
	assert.Empty(t, Validate(cfg))
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Default()

	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.PacingDuration())
	assert.Equal(t, "local", cfg.Sandbox.Backend)
	assert.Equal(t, "python:3.11-slim", cfg.Sandbox.Image)
	assert.Equal(t, 20*time.Second, cfg.Sandbox.TimeoutDuration())
	assert.Equal(t, "python", cfg.Sandbox.Interpreter)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 0.5, cfg.LLM.Temperature)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, "sqlite", cfg.Retrieval.Backend)
	assert.Equal(t, 6, cfg.Retrieval.TopK)
	assert.Equal(t, "Document", cfg.Retrieval.WeaviateClass)
	assert.False(t, strings.HasPrefix(cfg.Retrieval.SQLitePath, "~"))
	assert.Equal(t, 800, cfg.Ingest.ChunkSize)
	assert.Equal(t, 100, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, DefaultPatterns, cfg.Ingest.Patterns)
	assert.Empty(t, Validate(cfg))
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ragdebug.yaml")
	body := "llm:\n  temperature: 0\n  max_retries: 0\ningest:\n  chunk_overlap: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.LLM.Temperature)
	assert.Zero(t, cfg.LLM.MaxRetries)
	assert.Zero(t, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Empty(t, Validate(cfg))
}

func TestLoadOmittedKeysGetDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ragdebug.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: m\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.LLM.Temperature)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, 100, cfg.Ingest.ChunkOverlap)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("USE_DOCKER_SANDBOX", "true")
	t.Setenv("SANDBOX_DOCKER_IMAGE", "python:3.10")
	t.Setenv("MAX_ATTEMPTS", "5")
	t.Setenv("EXECUTION_TIMEOUT", "7")
	t.Setenv("RAGDEBUG_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("RAGDEBUG_RETRIEVAL_BACKEND", "weaviate")
	t.Setenv("WEAVIATE_URL", "http://localhost:8081")

	cfg := Default()

	assert.Equal(t, "docker", cfg.Sandbox.Backend)
	assert.Equal(t, "python:3.10", cfg.Sandbox.Image)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 7*time.Second, cfg.Sandbox.TimeoutDuration())
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "weaviate", cfg.Retrieval.Backend)
	assert.Empty(t, Validate(cfg))
}

func TestEnvTimeoutAcceptsDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXECUTION_TIMEOUT", "1m30s")
	assert.Equal(t, 90*time.Second, Default().Sandbox.TimeoutDuration())
}

func TestEnvDockerFalseSelectsLocal(t *testing.T) {
	clearEnv(t)
	t.Setenv("USE_DOCKER_SANDBOX", "0")
	cfg, err := Load(writeConfig(t, "sandbox:\n  backend: docker\n"))
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Sandbox.Backend)
}

func TestValidateRejectsBadValues(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.MaxAttempts = -1
	cfg.Sandbox.Backend = "podman"
	cfg.Sandbox.Timeout = "soon"
	cfg.LLM.Provider = "llama"
	cfg.Retrieval.TopK = -2
	cfg.Ingest.ChunkOverlap = 900

	fields := map[string]string{}
	for _, e := range Validate(cfg) {
		fields[e.Field] = e.Message
	}

	assert.Contains(t, fields, "max_attempts")
	assert.Contains(t, fields["sandbox.backend"], "podman")
	assert.Contains(t, fields["sandbox.timeout"], "invalid duration")
	assert.Contains(t, fields, "llm.provider")
	assert.Contains(t, fields, "retrieval.top_k")
	assert.Contains(t, fields, "ingest.chunk_overlap")
}

func TestValidateBackendRequirements(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.Retrieval.Backend = "postgres"

	errs := Validate(cfg)
	require.Len(t, errs, 1)
	assert.Equal(t, "retrieval.postgres_dsn", errs[0].Field)
	assert.Equal(t, "retrieval.postgres_dsn: is required for the postgres backend", errs[0].Error())
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "max_attempts: [oops"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config YAML")
}

func TestLoadNonexistentFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadDefaultFallsBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
}

func TestLoadDefaultFromCurrentDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ragdebug.yaml"), []byte("max_attempts: 9\n"), 0o644))
	t.Chdir(dir)

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.MaxAttempts)
}

func TestRedactedMasksSecrets(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.LLM.APIKey = "secret"
	cfg.Retrieval.PostgresDSN = "postgres://u:p@h/db"

	r := cfg.Redacted()
	assert.Equal(t, "***", r.LLM.APIKey)
	assert.Equal(t, "***", r.Retrieval.PostgresDSN)
	assert.Equal(t, "secret", cfg.LLM.APIKey)
}
