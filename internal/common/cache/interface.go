package cache

import (
	"context"
	"time"
)

// Cache is the key-value cache used for read-mostly lookups (problems,
// evaluation statuses). The Redis implementation backs production
// deployments; single-node setups run without one, and callers treat a nil
// Cache as disabled.
type Cache interface {
	// Get retrieves the value for the given key.
	// A missing key yields an empty string and no error.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair with optional TTL.
	// If ttl is 0, the key will not expire.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Del deletes one or more keys.
	Del(ctx context.Context, keys ...string) error

	// Ping verifies the cache connection is alive.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
