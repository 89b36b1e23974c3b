package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:11434", cfg.OllamaBaseURL)
	assert.Equal(t, 240*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 1500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 45*time.Second, cfg.ExecutionTimeout)
	assert.Equal(t, "30m", cfg.KeepAlive)
	assert.Equal(t, "projects", cfg.ProjectsRoot)
	assert.GreaterOrEqual(t, cfg.NumThreads, 1)
	assert.False(t, cfg.Launch)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("AURAX_OLLAMA_BASE_URL", "http://127.0.0.1:9999")
	t.Setenv("AURAX_OLLAMA_TIMEOUT_SECONDS", "30")
	t.Setenv("AURAX_OLLAMA_MAX_RETRIES", "5")
	t.Setenv("AURAX_OLLAMA_RETRY_BACKOFF_SECONDS", "0.5")
	t.Setenv("AURAX_OLLAMA_KEEP_ALIVE", "5m")
	t.Setenv("AURAX_EXECUTION_TIMEOUT_SECONDS", "7")
	t.Setenv("AURAX_MODEL", "llama3.2:3b")
	t.Setenv("AURAX_PROJECTS_ROOT", "/tmp/aurax-projects")
	t.Setenv("AURAX_LAUNCH", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9999", cfg.OllamaBaseURL)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, "5m", cfg.KeepAlive)
	assert.Equal(t, 7*time.Second, cfg.ExecutionTimeout)
	assert.Equal(t, "llama3.2:3b", cfg.Model)
	assert.Equal(t, "/tmp/aurax-projects", cfg.ProjectsRoot)
	assert.True(t, cfg.Launch)
}

func TestNormalizedRepairsInvalidValues(t *testing.T) {
	cfg := Config{
		MaxRetries: -3,
		NumThreads: 0,
	}.normalized()

	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, 1, cfg.NumThreads)
	assert.Equal(t, Default().ReadTimeout, cfg.ReadTimeout)
	assert.Equal(t, Default().PythonCommand, cfg.PythonCommand)
}
