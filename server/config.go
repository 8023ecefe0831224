package server

import (
	"time"

	"github.com/lightdream/redismanager/validation"
)

// Config holds HTTP health server configuration.
type Config struct {
	Enabled      bool   `mapstructure:"enabled"`
	Addr         string `mapstructure:"addr" validate:"required,hostname_port"`
	ReadTimeout  string `mapstructure:"read_timeout" validate:"required,duration"`
	WriteTimeout string `mapstructure:"write_timeout" validate:"required,duration"`
	IdleTimeout  string `mapstructure:"idle_timeout" validate:"required,duration"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout string `mapstructure:"shutdown_timeout" validate:"required,duration"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8080"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "15s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "15s"
	}
	if c.IdleTimeout == "" {
		c.IdleTimeout = "60s"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "5s"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
