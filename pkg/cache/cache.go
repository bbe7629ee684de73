// Package cache provides storage backends for downloaded package indexes.
//
// debfetch re-fetches the archive index on every run unless caching is
// enabled with a positive TTL. When it is, the raw Packages.gz bytes are
// stored under [IndexKey] of the index URL in one of the backends:
//
//   - [FileCache]: one file per entry under ~/.cache/debfetch (CLI default)
//   - [RedisCache]: a shared Redis instance, useful when several hosts or a
//     long-running server read the same mirror
//   - [NullCache]: stores nothing (caching disabled)
//
// All backends treat expired or undecodable entries as misses.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte payloads under string keys.
type Cache interface {
	// Get returns the payload for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// IndexKey returns the cache key for the index served at url.
func IndexKey(url string) string {
	return "index:" + Hash([]byte(url))
}
