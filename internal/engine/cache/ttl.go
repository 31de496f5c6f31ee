package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TTL configuration constants and defaults.
const (
	// DefaultTTLSeconds is the default entry TTL (1 hour).
	DefaultTTLSeconds = 3600

	// MinTTLSeconds is the minimum allowed TTL (1 second).
	MinTTLSeconds = 1

	// MaxTTLSeconds is the maximum allowed TTL (7 days).
	MaxTTLSeconds = 604800

	// DefaultMaxEntries is the default capacity bound.
	DefaultMaxEntries = 1000

	// EnvTTLSeconds overrides the default TTL.
	EnvTTLSeconds = "PULSEWATCH_CACHE_TTL_SECONDS"

	// EnvMaxEntries overrides the capacity bound.
	EnvMaxEntries = "PULSEWATCH_CACHE_MAX_ENTRIES"
)

// ErrTTLOutOfRange is returned when a configured TTL falls outside the
// allowed window.
var ErrTTLOutOfRange = fmt.Errorf("TTL must be between %d and %d seconds", MinTTLSeconds, MaxTTLSeconds)

// ValidateTTLSeconds checks a TTL in seconds against the allowed range.
func ValidateTTLSeconds(seconds int) error {
	if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
		return fmt.Errorf("%w: got %d", ErrTTLOutOfRange, seconds)
	}
	return nil
}

// TTLFromEnv reads the TTL override from the environment, falling back to
// the default when unset, unparsable, or out of range.
func TTLFromEnv() int {
	envVal := os.Getenv(EnvTTLSeconds)
	if envVal == "" {
		return DefaultTTLSeconds
	}
	ttl, err := strconv.Atoi(envVal)
	if err != nil || ValidateTTLSeconds(ttl) != nil {
		return DefaultTTLSeconds
	}
	return ttl
}

// MaxEntriesFromEnv reads the capacity override from the environment,
// falling back to the default when unset or invalid.
func MaxEntriesFromEnv() int {
	envVal := os.Getenv(EnvMaxEntries)
	if envVal == "" {
		return DefaultMaxEntries
	}
	size, err := strconv.Atoi(envVal)
	if err != nil || size <= 0 {
		return DefaultMaxEntries
	}
	return size
}

// ParseTTL parses a TTL given either as integer seconds ("3600") or as a
// Go duration string ("1h", "30m", "1h30m").
func ParseTTL(s string) (int, error) {
	if seconds, err := strconv.Atoi(s); err == nil {
		if validErr := ValidateTTLSeconds(seconds); validErr != nil {
			return 0, validErr
		}
		return seconds, nil
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}
	seconds := int(duration.Seconds())
	if validErr := ValidateTTLSeconds(seconds); validErr != nil {
		return 0, validErr
	}
	return seconds, nil
}
