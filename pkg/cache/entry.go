package cache

import (
	"time"
)

// CacheEntry is a stored page response.
type CacheEntry struct {
	// Body is the raw JSON payload
	Body []byte `json:"body"`

	// ETag for If-None-Match revalidation
	ETag string `json:"etag,omitempty"`

	// LastModified for If-Modified-Since revalidation
	LastModified time.Time `json:"last_modified"`

	// Expires is when the entry stops being fresh
	Expires time.Time `json:"expires"`

	// StoredAt is when the body was received
	StoredAt time.Time `json:"stored_at"`
}

// IsExpired returns true once the entry is no longer fresh.
// Expired entries can still be revalidated.
func (e *CacheEntry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the remaining freshness, or 0 if expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Refresh marks the entry fresh for another ttl, as after a 304.
func (e *CacheEntry) Refresh(ttl time.Duration) {
	e.Expires = time.Now().Add(ttl)
}
