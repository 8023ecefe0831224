package platform

import (
	"context"

	"github.com/lightdream/redismanager/bus"
	"github.com/lightdream/redismanager/logger"
	"github.com/lightdream/redismanager/provider"
	"github.com/lightdream/redismanager/redis"
	"github.com/lightdream/redismanager/redisson"
)

// Backend is a Redis client the bus can run on.
type Backend interface {
	bus.Platform
	provider.HealthChecker

	// Ping verifies the connection.
	Ping(ctx context.Context) error
}

// BackendConfig is handed to a backend factory.
type BackendConfig struct {
	Redis    redis.Config
	Redisson redisson.Config
	Log      *logger.Logger
}

// BackendFactory creates a backend from its configuration.
type BackendFactory = provider.Factory[Backend, BackendConfig]

var backends = newBackendRegistry()

func newBackendRegistry() *provider.Registry[Backend, BackendConfig] {
	r := provider.NewRegistry[Backend, BackendConfig]()
	r.RegisterFactory(redis.ProviderName, func(cfg BackendConfig) (Backend, error) {
		client, err := redis.New(cfg.Redis, cfg.Log)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
	r.RegisterFactory(redisson.ProviderName, func(cfg BackendConfig) (Backend, error) {
		client, err := redisson.New(cfg.Redisson, cfg.Log)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
	return r
}

// RegisterBackend adds or replaces a backend factory.
func RegisterBackend(name string, factory BackendFactory) {
	backends.RegisterFactory(name, factory)
}

// Backends lists the registered backend names.
func Backends() []string {
	return backends.List()
}

// NewBackend creates the named backend without connecting the bus.
func NewBackend(name string, cfg BackendConfig) (Backend, error) {
	if cfg.Log == nil {
		cfg.Log = logger.NewNop()
	}
	return backends.Create(name, cfg)
}
