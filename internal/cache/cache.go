// Package cache provides a TTL key/value Cache used to avoid
// redundant provider fetches across pipeline runs for the same
// (exchange, symbol, timeframe, as-of) key.
package cache

import (
	"context"
	"time"
)

// Cache is the interface both the in-memory and Redis-backed
// implementations satisfy.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
