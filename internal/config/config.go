// Package config loads and validates the PulseWatch service configuration
// from defaults, an optional YAML file, and PULSEWATCH_* environment
// overrides, in that precedence order. It also owns the process-wide
// structured logger.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/pulsewatch/pulsewatch/internal/engine/cache"
	"github.com/pulsewatch/pulsewatch/internal/sentiment"
	"github.com/pulsewatch/pulsewatch/internal/source"
)

// Environment override variables. Cache TTL and size overrides live in the
// cache package next to their validation rules.
const (
	EnvHost     = "PULSEWATCH_HOST"
	EnvPort     = "PULSEWATCH_PORT"
	EnvLogLevel = "PULSEWATCH_LOG_LEVEL"
)

// Server defaults.
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8000
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheConfig holds the query-result cache settings.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
	MaxEntries int `yaml:"max_entries"`
}

// SentimentConfig holds analyzer selection.
type SentimentConfig struct {
	DefaultAnalyzer string `yaml:"default_analyzer"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Sources   []source.Config `yaml:"sources"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns the built-in configuration: demo source enabled so a
// fresh checkout serves data without credentials.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: DefaultHost, Port: DefaultPort},
		Cache: CacheConfig{
			TTLSeconds: cache.DefaultTTLSeconds,
			MaxEntries: cache.DefaultMaxEntries,
		},
		Sources: []source.Config{
			{Name: source.DemoName, Enabled: true},
		},
		Sentiment: SentimentConfig{DefaultAnalyzer: sentiment.DefaultAnalyzer},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// non-empty), and environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers PULSEWATCH_* overrides on top of the loaded values.
func (c *Config) applyEnv() {
	if host := os.Getenv(EnvHost); host != "" {
		c.Server.Host = host
	}
	if portStr := os.Getenv(EnvPort); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			c.Server.Port = port
		}
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
	if os.Getenv(cache.EnvTTLSeconds) != "" {
		c.Cache.TTLSeconds = cache.TTLFromEnv()
	}
	if os.Getenv(cache.EnvMaxEntries) != "" {
		c.Cache.MaxEntries = cache.MaxEntriesFromEnv()
	}
}

// Validate checks ranges that would otherwise surface as runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if err := cache.ValidateTTLSeconds(c.Cache.TTLSeconds); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache config: %w: got %d", cache.ErrInvalidMaxSize, c.Cache.MaxEntries)
	}
	if _, err := sentiment.New(c.Sentiment.DefaultAnalyzer); err != nil {
		return fmt.Errorf("sentiment config: %w", err)
	}
	return nil
}
