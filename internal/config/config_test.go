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

func env(vars map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concierge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
model:
  provider: anthropic
  name: claude-sonnet-4
engine:
  max_steps: 10
checkpoint:
  backend: redis
  ttl: 24h
maps:
  cache_ttl: 1m
`), 0o600))

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("CONCIERGE_REDIS_ADDR", "redis:6379")
	t.Setenv("CONCIERGE_HTTP_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "claude-sonnet-4", cfg.Model.Name)
	assert.Equal(t, "sk-ant-test", cfg.Model.APIKey, "the key follows the provider")
	assert.Equal(t, 10, cfg.Engine.MaxSteps)
	assert.Equal(t, 3, cfg.Engine.MaxModelAttempts, "defaults survive a partial file")
	assert.Equal(t, "redis:6379", cfg.Checkpoint.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.Checkpoint.TTL)
	assert.Equal(t, time.Minute, cfg.Maps.CacheTTL)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	t.Chdir(t.TempDir())
	t.Setenv(EnvConfigFile, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Checkpoint.Backend)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0o600))
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoadFromEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := loadFromEnv(cfg, env(map[string]string{
		"OPENAI_API_KEY":             "sk-1",
		"CONCIERGE_MODEL_API_KEY":    "sk-2",
		"CONCIERGE_TOOL_CONCURRENCY": "8",
		"CONCIERGE_METRICS":          "false",
		"CONCIERGE_CHECKPOINT_TTL":   "90m",
		"GOOGLE_MAPS_API_KEY":        "maps",
		"TAVILY_API_KEY":             "  tvly  ",
	}))
	require.NoError(t, err)
	assert.Equal(t, "sk-2", cfg.Model.APIKey)
	assert.Equal(t, 8, cfg.Engine.ToolConcurrency)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 90*time.Minute, cfg.Checkpoint.TTL)
	assert.Equal(t, "maps", cfg.Maps.APIKey)
	assert.Equal(t, "tvly", cfg.Search.APIKey)

	err = loadFromEnv(DefaultConfig(), env(map[string]string{"CONCIERGE_MAX_STEPS": "many"}))
	assert.ErrorContains(t, err, "CONCIERGE_MAX_STEPS")
}

func TestValidate_JoinsProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "loud"
	cfg.Model.Provider = "llama"
	cfg.Engine.MaxSteps = 0
	cfg.Checkpoint.Backend = "s3"
	cfg.Checkpoint.EncryptionKey = "abcd"
	cfg.Hospital.Timezone = "Mars/Olympus"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"log_level", "model.provider", "model.api_key", "engine.max_steps",
		"checkpoint.backend", "checkpoint.encryption_key", "hospital.timezone",
	} {
		assert.True(t, strings.Contains(msg, want), want)
	}
}

func TestEncryptionKey(t *testing.T) {
	cfg := DefaultConfig()
	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Nil(t, key)

	cfg.Checkpoint.EncryptionKey = strings.Repeat("ab", 32)
	key, err = cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	cfg.Checkpoint.EncryptionKey = "zz"
	_, err = cfg.EncryptionKey()
	assert.Error(t, err)
}
