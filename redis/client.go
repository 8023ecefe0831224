package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lightdream/redismanager/logger"
	"github.com/lightdream/redismanager/provider"
)

// ProviderName identifies this backend in the platform registry.
const ProviderName = "redis"

var (
	_ provider.Provider      = (*Client)(nil)
	_ provider.HealthChecker = (*Client)(nil)
)

// Client wraps a go-redis client with logging and pub/sub helpers.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// New creates a new Redis client with the given configuration and logger.
// No connection is made until the first command.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}

	opts := &goredis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: parseOptional(cfg.MinRetryBackoff),
		MaxRetryBackoff: parseOptional(cfg.MaxRetryBackoff),
		DialTimeout:     parseOptional(cfg.DialTimeout),
		ReadTimeout:     parseOptional(cfg.ReadTimeout),
		WriteTimeout:    parseOptional(cfg.WriteTimeout),
		ConnMaxIdleTime: parseOptional(cfg.ConnMaxIdleTime),
		PoolTimeout:     parseOptional(cfg.PoolTimeout),
		ConnMaxLifetime: parseOptional(cfg.ConnMaxLifetime),
	}

	client := NewFromClient(goredis.NewClient(opts), cfg, log)
	client.log.Info("Redis client created", logger.Fields(
		"addr", cfg.Addr,
		"db", cfg.DB,
		"pool_size", cfg.PoolSize,
	))
	return client, nil
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(rdb *goredis.Client, cfg Config, log *logger.Logger) *Client {
	return &Client{rdb: rdb, log: log.WithComponent("redis"), cfg: cfg}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return ProviderName
}

// IsAvailable reports whether the client is open and Redis answers PING.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if c.isClosed() {
		return false
	}
	return c.rdb.Ping(ctx).Err() == nil
}

// Ping verifies the Redis connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	pong, err := c.rdb.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if pong != "PONG" {
		return fmt.Errorf("unexpected redis ping response: %s", pong)
	}
	return nil
}

// Health pings Redis and reports connection pool statistics.
func (c *Client) Health(ctx context.Context) provider.HealthStatus {
	start := time.Now()
	err := c.Ping(ctx)
	stats := c.rdb.PoolStats()
	details := map[string]any{
		"addr":        c.cfg.Addr,
		"latency_ms":  time.Since(start).Milliseconds(),
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"timeouts":    stats.Timeouts,
	}
	status := provider.HealthFromError(err, details)
	if err == nil && stats.Timeouts > 0 && stats.IdleConns == 0 && int(stats.TotalConns) >= c.cfg.PoolSize {
		status.Status = provider.StatusDegraded
		status.Message = "connection pool exhausted"
	}
	return status
}

// Get retrieves a value by key. Missing keys return goredis.Nil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Set stores a value with a key and expiration.
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// Del deletes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Exists checks if one or more keys exist.
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	return c.rdb.Exists(ctx, keys...).Result()
}

// Publish posts message on channel.
func (c *Client) Publish(ctx context.Context, channel, message string) error {
	if err := c.rdb.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe listens on channel and hands every payload to fn. ready is
// called once Redis confirms the subscription. It returns nil when ctx is
// done and an error when the subscription fails.
func (c *Client) Subscribe(ctx context.Context, channel string, ready func(), fn func(message string)) error {
	ps := c.rdb.Subscribe(ctx, channel)
	defer ps.Close()

	// A blocked read, including the wait for the confirmation, only
	// notices cancellation when the connection closes.
	stop := context.AfterFunc(ctx, func() { _ = ps.Close() })
	defer stop()

	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe %s: %w", channel, err)
	}
	if ready != nil {
		ready()
	}

	for {
		msg, err := ps.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("redis receive %s: %w", channel, err)
		}
		fn(msg.Payload)
	}
}

// Close closes the Redis connection. Safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.log.Info("Closing Redis connection")
	c.closed = true
	if err := c.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Unwrap returns the underlying go-redis client for advanced operations.
func (c *Client) Unwrap() *goredis.Client {
	return c.rdb
}
