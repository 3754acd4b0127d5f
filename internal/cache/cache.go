// Package cache defines the short-TTL byte cache used for OAuth flow state and
// credential caching, with in-process and Redis backends.
package cache

import "time"

// Cache is a minimal TTL-bound key/value store.
type Cache interface {
	Get(k string) ([]byte, bool)
	Set(k string, v []byte, ttl time.Duration)
	Delete(k string)
}
