package platform

import (
	"github.com/lightdream/redismanager/bus"
	apperrors "github.com/lightdream/redismanager/errors"
	"github.com/lightdream/redismanager/redis"
	"github.com/lightdream/redismanager/redisson"
	"github.com/lightdream/redismanager/validation"
)

// Config selects a backend and carries the settings of every layer.
type Config struct {
	// Backend names the registered backend factory ("redis" or "redisson").
	Backend string `mapstructure:"backend" validate:"required"`

	// ConnectAttempts bounds how often Start tries to reach Redis.
	ConnectAttempts int `mapstructure:"connect_attempts" validate:"min=1"`

	Bus      bus.Config      `mapstructure:"bus"`
	Redis    redis.Config    `mapstructure:"redis"`
	Redisson redisson.Config `mapstructure:"redisson"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = redis.ProviderName
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = 3
	}
	c.Bus.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Redisson.ApplyDefaults()
}

// Validate checks every section and that the backend is registered.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if !backends.Has(c.Backend) {
		return apperrors.InvalidInput("backend", "unknown backend "+c.Backend).
			WithDetail("available", Backends())
	}
	return nil
}
