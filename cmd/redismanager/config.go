package main

import (
	"fmt"

	"github.com/lightdream/redismanager/config"
	"github.com/lightdream/redismanager/observability"
	"github.com/lightdream/redismanager/platform"
	"github.com/lightdream/redismanager/server"
)

const serviceName = "redis-manager"

// Config is the full CLI configuration. Environment variables prefixed
// with REDIS_MANAGER_ override file values.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Platform      platform.Config      `yaml:"platform" mapstructure:"platform"`
	HTTP          server.Config        `yaml:"http" mapstructure:"http"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Debug {
		c.Platform.Bus.Debug = true
	}
	c.Platform.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section. The HTTP section is only checked when enabled.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Platform.Validate(); err != nil {
		return fmt.Errorf("platform: %w", err)
	}
	if c.HTTP.Enabled {
		if err := c.HTTP.Validate(); err != nil {
			return fmt.Errorf("http: %w", err)
		}
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}
