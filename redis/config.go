package redis

import (
	"time"

	"github.com/lightdream/redismanager/validation"
)

// DefaultPoolSize is the connection pool size used when none is configured.
const DefaultPoolSize = 16

// Config holds Redis connection configuration.
type Config struct {
	// Addr is the Redis server address (host:port).
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`

	// Password is the Redis server password.
	Password string `mapstructure:"password"`

	// DB is the Redis database number.
	DB int `mapstructure:"db" validate:"gte=0"`

	// PoolSize is the maximum number of socket connections.
	PoolSize int `mapstructure:"pool_size" validate:"min=1"`

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int `mapstructure:"min_idle_conns" validate:"gte=0"`

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`

	MinRetryBackoff string `mapstructure:"min_retry_backoff" validate:"omitempty,duration"`
	MaxRetryBackoff string `mapstructure:"max_retry_backoff" validate:"omitempty,duration"`

	DialTimeout  string `mapstructure:"dial_timeout" validate:"required,duration"`
	ReadTimeout  string `mapstructure:"read_timeout" validate:"required,duration"`
	WriteTimeout string `mapstructure:"write_timeout" validate:"required,duration"`

	// ConnMaxIdleTime is how long a connection may sit idle before being closed (e.g. "5m").
	ConnMaxIdleTime string `mapstructure:"idle_timeout" validate:"omitempty,duration"`

	// PoolTimeout is how long a command waits for a free connection (e.g. "4s").
	PoolTimeout string `mapstructure:"pool_timeout" validate:"omitempty,duration"`

	// ConnMaxLifetime is the maximum time a connection may be reused. Empty means no limit.
	ConnMaxLifetime string `mapstructure:"max_conn_age" validate:"omitempty,duration"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MinRetryBackoff == "" {
		c.MinRetryBackoff = "8ms"
	}
	if c.MaxRetryBackoff == "" {
		c.MaxRetryBackoff = "512ms"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "3s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "3s"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// parseOptional returns the parsed duration, or zero for an empty string.
func parseOptional(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, _ := time.ParseDuration(s)
	return d
}
