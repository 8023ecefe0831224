package redisson

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/redis/rueidis"

	"github.com/lightdream/redismanager/logger"
	"github.com/lightdream/redismanager/provider"
)

// ProviderName identifies this backend in the platform registry.
const ProviderName = "redisson"

var (
	_ provider.Provider      = (*Client)(nil)
	_ provider.HealthChecker = (*Client)(nil)
)

// Client wraps a rueidis client with logging and pub/sub helpers.
type Client struct {
	rc       rueidis.Client
	log      *logger.Logger
	cfg      Config
	cacheTTL time.Duration
	closed   bool
	mu       sync.Mutex
}

// New dials Redis with the given configuration.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redisson config: %w", err)
	}

	rc, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:       cfg.Addrs,
		Username:          cfg.Username,
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		ClientName:        cfg.ClientName,
		DisableCache:      cfg.DisableCache,
		CacheSizeEachConn: cfg.CacheSizeEachConn,
		Dialer:            net.Dialer{Timeout: duration(cfg.DialTimeout)},
		ConnWriteTimeout:  duration(cfg.ConnWriteTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("redisson connect %s: %w", strings.Join(cfg.Addrs, ","), err)
	}

	client := NewFromClient(rc, cfg, log)
	client.log.Info("Redisson client created", logger.Fields(
		"addrs", strings.Join(cfg.Addrs, ","),
		"db", cfg.DB,
		"client_cache", !cfg.DisableCache,
	))
	return client, nil
}

// NewFromClient wraps an existing rueidis client.
func NewFromClient(rc rueidis.Client, cfg Config, log *logger.Logger) *Client {
	cfg.ApplyDefaults()
	return &Client{
		rc:       rc,
		log:      log.WithComponent("redisson"),
		cfg:      cfg,
		cacheTTL: duration(cfg.CacheTTL),
	}
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
	return c.Ping(ctx) == nil
}

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rc.Do(ctx, c.rc.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("redisson ping failed: %w", err)
	}
	return nil
}

// Health pings Redis and reports latency and cache mode.
func (c *Client) Health(ctx context.Context) provider.HealthStatus {
	start := time.Now()
	err := c.Ping(ctx)
	return provider.HealthFromError(err, map[string]any{
		"addrs":        c.cfg.Addrs,
		"latency_ms":   time.Since(start).Milliseconds(),
		"client_cache": !c.cfg.DisableCache,
	})
}

// Publish posts message on channel.
func (c *Client) Publish(ctx context.Context, channel, message string) error {
	cmd := c.rc.B().Publish().Channel(channel).Message(message).Build()
	if err := c.rc.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redisson publish: %w", err)
	}
	return nil
}

// Subscribe listens on channel and hands every payload to fn. ready is
// called once, after Redis confirms the subscription. rueidis resubscribes
// on its own after transient connection loss; Subscribe returns nil when
// ctx is done and an error when the subscription cannot be kept.
func (c *Client) Subscribe(ctx context.Context, channel string, ready func(), fn func(message string)) error {
	var once sync.Once
	hooked := rueidis.WithOnSubscriptionHook(ctx, func(s rueidis.PubSubSubscription) {
		if s.Kind == "subscribe" && s.Channel == channel && ready != nil {
			once.Do(ready)
		}
	})

	err := c.rc.Receive(hooked, c.rc.B().Subscribe().Channel(channel).Build(), func(msg rueidis.PubSubMessage) {
		fn(msg.Message)
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redisson subscribe %s: %w", channel, err)
	}
	return fmt.Errorf("redisson subscribe %s: subscription ended", channel)
}

// Close closes all connections. Safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.log.Info("Closing Redisson connection")
	c.closed = true
	c.rc.Close()
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Unwrap returns the underlying rueidis client for advanced operations.
func (c *Client) Unwrap() rueidis.Client {
	return c.rc
}
