package cache

import (
	"net/http"
	"time"
)

// Entry is one cached response.
type Entry struct {
	// Data is the response body.
	Data []byte `json:"data"`

	// StatusCode of the cached response. Only 200 responses are cached.
	StatusCode int `json:"status_code"`

	// Headers are the response headers, kept so cache hits can still expose
	// pagination metadata.
	Headers http.Header `json:"headers"`

	// CachedAt is when the response was stored.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`
}

// NewEntry builds an entry for a fresh response. The expiry is assigned by
// the manager when the entry is stored.
func NewEntry(data []byte, statusCode int, headers http.Header) *Entry {
	return &Entry{
		Data:       data,
		StatusCode: statusCode,
		Headers:    headers.Clone(),
		CachedAt:   time.Now(),
	}
}

// IsExpired returns true if the entry has passed its expiry.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
