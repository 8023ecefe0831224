package platform

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lightdream/redismanager/bus"
	"github.com/lightdream/redismanager/component"
	apperrors "github.com/lightdream/redismanager/errors"
	"github.com/lightdream/redismanager/logger"
	"github.com/lightdream/redismanager/provider"
	"github.com/lightdream/redismanager/redis"
	"github.com/lightdream/redismanager/resilience"
)

const componentName = "redis-manager"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component connects the configured backend and runs a bus manager on it.
type Component struct {
	cfg     Config
	log     *logger.Logger
	opts    []bus.Option
	setup   []func(*bus.Manager)
	backoff time.Duration

	mu      sync.Mutex
	backend Backend
	manager *bus.Manager
}

// New validates cfg and returns a stopped Component.
func New(cfg Config, log *logger.Logger, opts ...bus.Option) (*Component, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Component{
		cfg:     cfg,
		log:     log.WithComponent("platform"),
		opts:    opts,
		backoff: 200 * time.Millisecond,
	}, nil
}

// OnStart registers fn to run against the manager before it subscribes.
// Use it to attach handlers.
func (c *Component) OnStart(fn func(*bus.Manager)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setup = append(c.setup, fn)
}

// Name returns the component name used for registration.
func (c *Component) Name() string { return componentName }

// Start connects the backend, then creates and starts the manager.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.manager != nil {
		return nil
	}

	backend, err := c.connect(ctx)
	if err != nil {
		return err
	}

	m, err := bus.New(c.cfg.Bus, backend, c.log, c.opts...)
	if err != nil {
		_ = backend.Close()
		return err
	}
	for _, fn := range c.setup {
		fn(m)
	}
	if err := m.Start(ctx); err != nil {
		_ = backend.Close()
		return err
	}

	c.backend = backend
	c.manager = m
	return nil
}

func (c *Component) connect(ctx context.Context) (Backend, error) {
	var backend Backend
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = c.cfg.ConnectAttempts
	retry.InitialBackoff = c.backoff
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.log.Warn("redis not reachable, retrying", logger.MergeWithError(logger.Fields(
			logger.FieldBackend, c.cfg.Backend,
			"attempt", attempt,
			"backoff", backoff.String(),
		), err))
	}

	err := resilience.RetryFunc(ctx, retry, func() error {
		b, err := NewBackend(c.cfg.Backend, BackendConfig{
			Redis:    c.cfg.Redis,
			Redisson: c.cfg.Redisson,
			Log:      c.log,
		})
		if err != nil {
			if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
				return err
			}
			return apperrors.ConnectionFailed(c.cfg.Backend).WithCause(err)
		}
		if err := b.Ping(ctx); err != nil {
			_ = b.Close()
			return apperrors.ConnectionFailed(c.cfg.Backend).WithCause(err)
		}
		backend = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// Stop stops the manager, then closes the backend.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	m, backend := c.manager, c.backend
	c.manager, c.backend = nil, nil
	c.mu.Unlock()

	if m == nil {
		return nil
	}
	var errs []error
	if err := m.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop bus: %w", err))
	}
	if err := backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", backend.Name(), err))
	}
	return stderrors.Join(errs...)
}

// Health reports backend health and whether the bus is subscribed.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	m, backend := c.manager, c.backend
	c.mu.Unlock()

	if backend == nil {
		return component.Health{
			Name:    componentName,
			Status:  component.StatusUnhealthy,
			Message: "not started",
		}
	}

	hs := backend.Health(ctx)
	details := make(map[string]any, len(hs.Details)+3)
	for k, v := range hs.Details {
		details[k] = v
	}
	details["backend"] = backend.Name()
	details["address"] = m.Address()
	details["pending"] = m.PendingCount()

	h := component.Health{
		Name:    componentName,
		Status:  healthStatus(hs.Status),
		Message: hs.Message,
		Details: details,
	}
	if h.Status == component.StatusHealthy && !m.Running() {
		h.Status = component.StatusUnhealthy
		h.Message = "bus not subscribed"
	}
	return h
}

func healthStatus(s provider.Status) component.HealthStatus {
	switch s {
	case provider.StatusHealthy:
		return component.StatusHealthy
	case provider.StatusDegraded:
		return component.StatusDegraded
	default:
		return component.StatusUnhealthy
	}
}

// Describe returns summary info for the startup log.
func (c *Component) Describe() component.Description {
	addr := c.cfg.Redis.Addr
	if c.cfg.Backend != redis.ProviderName {
		addr = strings.Join(c.cfg.Redisson.Addrs, ",")
	}
	return component.Description{
		Name:    "Redis Manager",
		Type:    c.cfg.Backend,
		Details: fmt.Sprintf("%s channel=%s id=%s", addr, c.cfg.Bus.Channel, c.cfg.Bus.ID),
	}
}

// Manager returns the running bus manager, or nil before Start.
func (c *Component) Manager() *bus.Manager {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manager
}

// Platform returns the connected backend, or nil before Start.
func (c *Component) Platform() Backend {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend
}
