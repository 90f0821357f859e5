package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default("/data")

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "gemini-2.5-flash", cfg.Generation.Model)
	assert.Equal(t, 0.7, cfg.Generation.Temperature)
	assert.Equal(t, 8192, cfg.Generation.MaxTokens)
	assert.Equal(t, 4, cfg.Generation.MaxConcurrent)
	assert.Equal(t, filepath.Join("/data", "knowledge"), cfg.Retrieval.Path)
	assert.Equal(t, filepath.Join("/data", "memory.db"), cfg.Memory.DBPath)
	assert.Equal(t, 3, cfg.Engine.MaxIterations)
	assert.Equal(t, 7.0, cfg.Engine.MinimumScore)
}

// clearEnv neutralizes ambient overrides so file/default layering is
// observable in isolation.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{"GEMINI_API_KEY", "STORYFORGE_MODEL", "STORYFORGE_LOG_LEVEL", "STORYFORGE_MAX_ITERATIONS", "STORYFORGE_MIN_SCORE"} {
		t.Setenv(v, "")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(filepath.Dir(path)), cfg)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
logging:
  level: debug
generation:
  model: gemini-2.5-pro
  temperature: 0.3
engine:
  max_iterations: 5
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "gemini-2.5-pro", cfg.Generation.Model)
	assert.Equal(t, 0.3, cfg.Generation.Temperature)
	assert.Equal(t, 5, cfg.Engine.MaxIterations)
	// Untouched fields keep their defaults.
	assert.Equal(t, 8192, cfg.Generation.MaxTokens)
	assert.Equal(t, 7.0, cfg.Engine.MinimumScore)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging: [not: a: map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("STORYFORGE_MODEL", "gemini-2.5-pro")
	t.Setenv("STORYFORGE_LOG_LEVEL", "warn")
	t.Setenv("STORYFORGE_MAX_ITERATIONS", "6")
	t.Setenv("STORYFORGE_MIN_SCORE", "8.5")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.Generation.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.Generation.Model)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 6, cfg.Engine.MaxIterations)
	assert.Equal(t, 8.5, cfg.Engine.MinimumScore)
}

func TestEnvIgnoresInvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORYFORGE_MAX_ITERATIONS", "zero")
	t.Setenv("STORYFORGE_MIN_SCORE", "high")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.MaxIterations)
	assert.Equal(t, 7.0, cfg.Engine.MinimumScore)
}
