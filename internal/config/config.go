// Package config holds the settings shared by every concierge command.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/concierge/pkg/adapters/llm"
)

// Checkpoint backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the root configuration document.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Model      ModelConfig      `yaml:"model"`
	Engine     EngineConfig     `yaml:"engine"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Hospital   HospitalConfig   `yaml:"hospital"`
	Maps       MapsConfig       `yaml:"maps"`
	Search     SearchConfig     `yaml:"search"`
	HTTP       HTTPConfig       `yaml:"http"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ModelConfig selects the language model.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	MaxRetries  int     `yaml:"max_retries"`
}

// EngineConfig bounds a single turn.
type EngineConfig struct {
	MaxSteps         int `yaml:"max_steps"`
	MaxModelAttempts int `yaml:"max_model_attempts"`
	ToolConcurrency  int `yaml:"tool_concurrency"`
}

// CheckpointConfig selects where threads live.
type CheckpointConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
	TTL           time.Duration `yaml:"ttl"`
	LockTTL       time.Duration `yaml:"lock_ttl"`

	// EncryptionKey is a hex encoded AES-256 key. Empty disables encryption.
	EncryptionKey string   `yaml:"encryption_key"`
	Redact        []string `yaml:"redact"`
}

// HospitalConfig points at the hospital database.
type HospitalConfig struct {
	DBPath   string `yaml:"db_path"`
	Timezone string `yaml:"timezone"`
	Seed     bool   `yaml:"seed"`
}

// MapsConfig configures the directions service.
type MapsConfig struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// SearchConfig configures web search.
type SearchConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns a configuration that runs locally with an in-memory
// checkpoint store.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Model: ModelConfig{
			Provider:   llm.ProviderOpenAI,
			Name:       "gpt-4o-mini",
			MaxTokens:  llm.DefaultMaxTokens,
			MaxRetries: 2,
		},
		Engine: EngineConfig{
			MaxSteps:         25,
			MaxModelAttempts: 3,
			ToolConcurrency:  4,
		},
		Checkpoint: CheckpointConfig{
			Backend:   BackendMemory,
			Dir:       ".concierge/threads",
			RedisAddr: "localhost:6379",
			Prefix:    "concierge",
			LockTTL:   30 * time.Second,
		},
		Hospital: HospitalConfig{
			DBPath:   "hospital.db",
			Timezone: "America/Chicago",
		},
		Maps: MapsConfig{
			CacheSize: 256,
			CacheTTL:  5 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Location resolves the hospital time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Hospital.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Hospital.Timezone)
}

// EncryptionKey decodes the checkpoint key; nil when encryption is off.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.Checkpoint.EncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.Checkpoint.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("checkpoint.encryption_key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("checkpoint.encryption_key: want 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log_level: unknown level %q", c.LogLevel)
	}

	providers := []string{llm.ProviderOpenAI, llm.ProviderAnthropic}
	if !slices.Contains(providers, strings.ToLower(c.Model.Provider)) {
		add("model.provider: must be one of %s", strings.Join(providers, ", "))
	}
	if c.Model.Name == "" {
		add("model.name: required")
	}
	if c.Model.APIKey == "" {
		add("model.api_key: required (or set %s)", providerKeyEnv(c.Model.Provider))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		add("model.temperature: %v out of range [0, 2]", c.Model.Temperature)
	}

	if c.Engine.MaxSteps <= 0 {
		add("engine.max_steps: must be positive")
	}
	if c.Engine.MaxModelAttempts <= 0 {
		add("engine.max_model_attempts: must be positive")
	}
	if c.Engine.ToolConcurrency <= 0 {
		add("engine.tool_concurrency: must be positive")
	}

	switch c.Checkpoint.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Checkpoint.Dir == "" {
			add("checkpoint.dir: required for the file backend")
		}
	case BackendRedis:
		if c.Checkpoint.RedisAddr == "" {
			add("checkpoint.redis_addr: required for the redis backend")
		}
	default:
		add("checkpoint.backend: unknown backend %q", c.Checkpoint.Backend)
	}
	if _, err := c.EncryptionKey(); err != nil {
		errs = append(errs, err)
	}

	if c.Hospital.DBPath == "" {
		add("hospital.db_path: required")
	}
	if _, err := c.Location(); err != nil {
		add("hospital.timezone: %w", err)
	}

	if c.Maps.CacheSize < 0 {
		add("maps.cache_size: must not be negative")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		add("metrics.path: must start with /")
	}

	return errors.Join(errs...)
}

func providerKeyEnv(provider string) string {
	if strings.EqualFold(provider, llm.ProviderAnthropic) {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENAI_API_KEY"
}
