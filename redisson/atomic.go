package redisson

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"
)

// AtomicLong is a 64-bit counter shared through Redis.
type AtomicLong struct {
	client *Client
	key    string
}

// NewAtomicLong returns the counter stored at key.
func NewAtomicLong(client *Client, key string) *AtomicLong {
	return &AtomicLong{client: client, key: key}
}

// Get returns the current value; a missing counter reads as 0.
func (a *AtomicLong) Get(ctx context.Context) (int64, error) {
	rc := a.client.rc
	raw, err := rc.Do(ctx, rc.B().Get().Key(a.key).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("atomic long get %q: %w", a.key, err)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("atomic long %q holds %q: %w", a.key, raw, err)
	}
	return v, nil
}

// Set overwrites the value.
func (a *AtomicLong) Set(ctx context.Context, v int64) error {
	rc := a.client.rc
	cmd := rc.B().Set().Key(a.key).Value(strconv.FormatInt(v, 10)).Build()
	if err := rc.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("atomic long set %q: %w", a.key, err)
	}
	return nil
}

// IncrementAndGet adds one and returns the new value.
func (a *AtomicLong) IncrementAndGet(ctx context.Context) (int64, error) {
	rc := a.client.rc
	return a.result(rc.Do(ctx, rc.B().Incr().Key(a.key).Build()))
}

// DecrementAndGet subtracts one and returns the new value.
func (a *AtomicLong) DecrementAndGet(ctx context.Context) (int64, error) {
	rc := a.client.rc
	return a.result(rc.Do(ctx, rc.B().Decr().Key(a.key).Build()))
}

// AddAndGet adds delta and returns the new value.
func (a *AtomicLong) AddAndGet(ctx context.Context, delta int64) (int64, error) {
	rc := a.client.rc
	return a.result(rc.Do(ctx, rc.B().Incrby().Key(a.key).Increment(delta).Build()))
}

func (a *AtomicLong) result(res rueidis.RedisResult) (int64, error) {
	v, err := res.AsInt64()
	if err != nil {
		return 0, fmt.Errorf("atomic long %q: %w", a.key, err)
	}
	return v, nil
}
