package cache

import "time"

// Entry represents a cached extraction result.
type Entry struct {
	// Body is the structured-output document returned by the server.
	Body []byte `json:"body"`

	// CachedAt is when we stored this result.
	CachedAt time.Time `json:"cached_at"`
}
