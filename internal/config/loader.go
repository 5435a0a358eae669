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

// EnvConfigFile names the config file when no path is given.
const EnvConfigFile = "CONCIERGE_CONFIG"

// Load reads defaults, then the YAML file at path (optional when empty or
// missing), then the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigFile)
		explicit = path != ""
	}
	if path == "" {
		path = "concierge.yaml"
	}

	if err := loadFromFile(cfg, path); err != nil {
		// An explicit path must exist; the default one is optional.
		if explicit || !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := loadFromEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if info, statErr := os.Stat(path); statErr == nil && info.Mode().Perm()&0o077 != 0 && strings.Contains(string(data), "api_key") {
		slog.Warn("config file with api keys has permissive permissions",
			"path", path,
			"mode", fmt.Sprintf("%04o", info.Mode().Perm()),
			"recommended", "0600")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// loadFromEnv applies CONCIERGE_* variables and the well-known provider keys.
func loadFromEnv(cfg *Config, lookup lookupFunc) error {
	env := envReader{lookup: lookup}

	env.str("CONCIERGE_LOG_LEVEL", &cfg.LogLevel)

	env.str("CONCIERGE_MODEL_PROVIDER", &cfg.Model.Provider)
	env.str("CONCIERGE_MODEL", &cfg.Model.Name)
	env.str("CONCIERGE_MODEL_BASE_URL", &cfg.Model.BaseURL)
	env.float("CONCIERGE_MODEL_TEMPERATURE", &cfg.Model.Temperature)
	env.int("CONCIERGE_MODEL_MAX_TOKENS", &cfg.Model.MaxTokens)
	if cfg.Model.APIKey == "" {
		env.str(providerKeyEnv(cfg.Model.Provider), &cfg.Model.APIKey)
	}
	env.str("CONCIERGE_MODEL_API_KEY", &cfg.Model.APIKey)

	env.int("CONCIERGE_MAX_STEPS", &cfg.Engine.MaxSteps)
	env.int("CONCIERGE_MAX_MODEL_ATTEMPTS", &cfg.Engine.MaxModelAttempts)
	env.int("CONCIERGE_TOOL_CONCURRENCY", &cfg.Engine.ToolConcurrency)

	env.str("CONCIERGE_CHECKPOINT_BACKEND", &cfg.Checkpoint.Backend)
	env.str("CONCIERGE_CHECKPOINT_DIR", &cfg.Checkpoint.Dir)
	env.str("CONCIERGE_REDIS_ADDR", &cfg.Checkpoint.RedisAddr)
	env.str("CONCIERGE_REDIS_PASSWORD", &cfg.Checkpoint.RedisPassword)
	env.int("CONCIERGE_REDIS_DB", &cfg.Checkpoint.RedisDB)
	env.duration("CONCIERGE_CHECKPOINT_TTL", &cfg.Checkpoint.TTL)
	env.str("CONCIERGE_ENCRYPTION_KEY", &cfg.Checkpoint.EncryptionKey)

	env.str("CONCIERGE_DB_PATH", &cfg.Hospital.DBPath)
	env.str("CONCIERGE_TIMEZONE", &cfg.Hospital.Timezone)

	env.str("GOOGLE_MAPS_API_KEY", &cfg.Maps.APIKey)
	env.str("TAVILY_API_KEY", &cfg.Search.APIKey)

	env.str("CONCIERGE_HTTP_ADDR", &cfg.HTTP.Addr)
	env.bool("CONCIERGE_METRICS", &cfg.Metrics.Enabled)

	return env.err
}

// envReader keeps the first parse failure so callers check once.
type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) bool(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = d
	}
}
