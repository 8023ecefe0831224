package redisson

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/lightdream/redismanager/provider"
)

// Bucket is a single JSON value stored under one key. Reads go through the
// client-side cache when it is enabled.
type Bucket[T any] struct {
	client *Client
	key    string
}

// NewBucket returns the bucket stored at key.
func NewBucket[T any](client *Client, key string) *Bucket[T] {
	return &Bucket[T]{client: client, key: key}
}

// Key returns the Redis key of the bucket.
func (b *Bucket[T]) Key() string {
	return b.key
}

// Get returns the stored value, or nil when the bucket is empty.
func (b *Bucket[T]) Get(ctx context.Context) (*T, error) {
	rc := b.client.rc
	raw, err := rc.DoCache(ctx, rc.B().Get().Key(b.key).Cache(), b.client.cacheTTL).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bucket get %q: %w", b.key, err)
	}

	var val T
	if err := json.Unmarshal([]byte(raw), &val); err != nil {
		return nil, fmt.Errorf("bucket unmarshal %q: %w", b.key, err)
	}
	return &val, nil
}

// Set stores val. A ttl of 0 keeps the value until it is deleted.
func (b *Bucket[T]) Set(ctx context.Context, val *T, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("bucket marshal %q: %w", b.key, err)
	}

	rc := b.client.rc
	var cmd rueidis.Completed
	if ttl > 0 {
		cmd = rc.B().Set().Key(b.key).Value(string(data)).Px(ttl).Build()
	} else {
		cmd = rc.B().Set().Key(b.key).Value(string(data)).Build()
	}
	if err := rc.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("bucket set %q: %w", b.key, err)
	}
	return nil
}

// Delete empties the bucket.
func (b *Bucket[T]) Delete(ctx context.Context) error {
	rc := b.client.rc
	if err := rc.Do(ctx, rc.B().Del().Key(b.key).Build()).Error(); err != nil {
		return fmt.Errorf("bucket delete %q: %w", b.key, err)
	}
	return nil
}

// Store keeps typed state in one bucket per key under a common prefix.
type Store[C any] struct {
	client *Client
	prefix string
}

var _ provider.ContextStore[any] = (*Store[any])(nil)

// NewStore creates a Store whose keys are prefix:key.
func NewStore[C any](client *Client, prefix string) *Store[C] {
	return &Store[C]{client: client, prefix: prefix}
}

func (s *Store[C]) bucket(key string) *Bucket[C] {
	if s.prefix != "" {
		key = s.prefix + ":" + key
	}
	return NewBucket[C](s.client, key)
}

// Load returns the state at key, or (nil, nil) when missing.
func (s *Store[C]) Load(ctx context.Context, key string) (*C, error) {
	return s.bucket(key).Get(ctx)
}

// Save stores the state at key.
func (s *Store[C]) Save(ctx context.Context, key string, val *C, ttl time.Duration) error {
	return s.bucket(key).Set(ctx, val, ttl)
}

// Delete removes the state at key.
func (s *Store[C]) Delete(ctx context.Context, key string) error {
	return s.bucket(key).Delete(ctx)
}
