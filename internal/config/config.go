package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	CORSOrigins string `envconfig:"CORS_ORIGINS"`

	// Knowledge store
	StorePath string `envconfig:"STORE_PATH" default:"socrates.db"`

	// Seed file of global knowledge entries, imported at startup (optional).
	SeedPath string `envconfig:"SEED_PATH"`

	// Embedding backend (optional — without it, similarity search falls back
	// to recency ordering instead of cosine ranking).
	EmbedderEndpoint   string        `envconfig:"EMBEDDER_ENDPOINT"`
	EmbedderAPIKey     string        `envconfig:"EMBEDDER_API_KEY"`
	EmbedderModel      string        `envconfig:"EMBEDDER_MODEL" default:"text-embedding-3-small"`
	EmbedderDimensions int           `envconfig:"EMBEDDER_DIMENSIONS"`
	EmbedderTimeout    time.Duration `envconfig:"EMBEDDER_TIMEOUT" default:"30s"`
	EmbedderCacheSize  int           `envconfig:"EMBEDDER_CACHE_SIZE" default:"1024"`
}

// EmbedderEnabled returns true if an embedding endpoint is configured.
func (c *Config) EmbedderEnabled() bool {
	return c.EmbedderEndpoint != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// LoadWithPrefix reads configuration with an environment variable prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	return &cfg, nil
}
