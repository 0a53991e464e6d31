package cache

import (
	"context"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist.
type cacheMissError struct{}

func (cacheMissError) Error() string { return "cache miss" }

// ErrCacheMiss is the sentinel returned when a key is absent.
var ErrCacheMiss error = cacheMissError{}

// Cache is the key-value contract the grading pipeline uses for
// read-through caching of Data Grader records. It is intentionally small
// so Redis can be swapped for an in-process implementation in tests.
type Cache interface {
	// Get retrieves the value for the given key.
	// Returns ErrCacheMiss if the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair with optional TTL.
	// If ttl is 0, the key does not expire.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Del deletes one or more keys.
	Del(ctx context.Context, keys ...string) error

	// Ping verifies the cache connection is alive.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
