package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, HandoffIfMissing, cfg.Handoff.Variant)
	assert.Equal(t, 20, cfg.Agents.MaxHistory)
	assert.Empty(t, cfg.Search.BaseURL)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
llm:
  provider: anthropic
handoff:
  variant: always
search:
  base_url: https://search.example.com/api
agents:
  max_history: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, HandoffAlways, cfg.Handoff.Variant)
	assert.Equal(t, "https://search.example.com/api", cfg.Search.BaseURL)
	assert.Equal(t, 5, cfg.Agents.MaxHistory)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TICKERDESK_LOG__LEVEL", "warn")
	t.Setenv("TICKERDESK_HANDOFF__VARIANT", "always")
	t.Setenv("TICKERDESK_SEARCH__BASE_URL", "https://env.example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, HandoffAlways, cfg.Handoff.Variant)
	assert.Equal(t, "https://env.example.com", cfg.Search.BaseURL)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	t.Setenv("TICKERDESK_LOG__LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level, "environment must win over file")
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	cfg := Default()
	cfg.Handoff.Variant = "sometimes"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.LLM.Provider = "parrot"
	assert.Error(t, cfg.Validate())

	t.Setenv("TICKERDESK_HANDOFF__VARIANT", "bogus")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
