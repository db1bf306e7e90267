// Package cache provides the time-boxed response store for the gateway.
package cache

import "context"

// Cache is the interface for response caching. The TTL is fixed when the
// cache is constructed; an expired or missing key is never an error.
type Cache interface {
	// Get retrieves a copy of a cached value if it is present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set overwrites the value for key, stamped at the current time.
	Set(ctx context.Context, key string, val []byte)
	// Purge removes all cached values.
	Purge(ctx context.Context)
}
