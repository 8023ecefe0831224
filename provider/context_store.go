package provider

import (
	"context"
	"time"
)

// ContextStore provides typed JSON state persistence in Redis. Both
// backends ship an implementation: redis.TypedStore and redisson.Store.
//
// The key is an opaque string chosen by the caller.
// TTL of 0 means no expiration.
type ContextStore[C any] interface {
	// Load retrieves state. Returns (nil, nil) if key doesn't exist.
	Load(ctx context.Context, key string) (*C, error)
	// Save persists state with optional TTL. TTL of 0 means no expiration.
	Save(ctx context.Context, key string, val *C, ttl time.Duration) error
	// Delete removes state.
	Delete(ctx context.Context, key string) error
}
