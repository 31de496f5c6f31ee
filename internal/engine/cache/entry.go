package cache

import "time"

// Entry is a single cached query result with TTL metadata. The store owns
// entries exclusively; callers receive the Value, never the Entry itself.
type Entry struct {
	// Key is the canonical fingerprint (see BuildKey).
	Key string `json:"key"`

	// Value is the cached payload. The cache is content-agnostic; the
	// engine stores *social.AnalysisResult here.
	Value any `json:"value"`

	// CreatedAt is when the entry was written.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is CreatedAt + TTL; the entry is logically absent once
	// the clock reaches it.
	ExpiresAt time.Time `json:"expires_at"`

	// HitCount is incremented on every successful read.
	HitCount int `json:"hit_count"`
}

// expiredAt reports whether the entry is expired at the given instant.
func (e *Entry) expiredAt(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Age returns the duration since the entry was created.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// TimeUntilExpiration returns the remaining lifetime, or 0 if expired.
func (e *Entry) TimeUntilExpiration(now time.Time) time.Duration {
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
