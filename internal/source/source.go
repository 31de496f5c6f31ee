// Package source defines the pluggable data-source capability used by the
// aggregation engine, a registry of source constructors keyed by name, and
// the built-in adapters (twitter, reddit, demo). Adding a source means
// registering a constructor; the engine never changes.
package source

import (
	"context"
	"net/http"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/social"
)

// Default adapter settings, matching the per-source config defaults.
const (
	DefaultRateLimit      = 100
	DefaultTimeoutSeconds = 30
	DefaultBotThreshold   = 0.8

	// maxAPILimit is the per-request ceiling the public APIs accept.
	maxAPILimit = 100
)

// Source is the capability every data source implements.
type Source interface {
	// Name returns the registry name of the source.
	Name() string

	// Search returns posts matching the query. Implementations honor
	// ctx for timeouts and cancellation.
	Search(ctx context.Context, query social.SearchQuery) ([]social.Post, error)

	// UserPosts returns up to limit posts authored by userID.
	UserPosts(ctx context.Context, userID string, limit int) ([]social.Post, error)

	// Available reports whether the source is enabled and configured.
	Available() bool

	// RateLimit describes the source's request budget.
	RateLimit() RateLimitInfo
}

// RateLimitInfo describes a source's request budget.
type RateLimitInfo struct {
	RequestsPerHour int        `json:"requests_per_hour"`
	Remaining       int        `json:"remaining"`
	ResetAt         *time.Time `json:"reset_at,omitempty"`
}

// Config configures one data-source instance. Secrets are excluded from
// JSON so registry listings can be served verbatim.
type Config struct {
	Name           string  `yaml:"name" json:"name"`
	Enabled        bool    `yaml:"enabled" json:"enabled"`
	APIKey         string  `yaml:"api_key,omitempty" json:"-"`
	APISecret      string  `yaml:"api_secret,omitempty" json:"-"`
	RateLimit      int     `yaml:"rate_limit" json:"rate_limit"`
	TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
	CacheTTL       int     `yaml:"cache_ttl" json:"cache_ttl"`
	BotThreshold   float64 `yaml:"bot_threshold" json:"bot_threshold"`
}

// withDefaults fills zero-valued tuning fields.
func (c Config) withDefaults() Config {
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.BotThreshold == 0 {
		c.BotThreshold = DefaultBotThreshold
	}
	return c
}

// httpClient builds the shared client for an adapter from its config.
func (c Config) httpClient() *http.Client {
	return &http.Client{Timeout: time.Duration(c.TimeoutSeconds) * time.Second}
}

// clampLimit bounds a requested post count to what the APIs accept.
func clampLimit(limit int) int {
	if limit <= 0 {
		return social.DefaultLimit
	}
	if limit > maxAPILimit {
		return maxAPILimit
	}
	return limit
}
