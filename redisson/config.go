package redisson

import (
	"time"

	"github.com/lightdream/redismanager/validation"
)

// Config holds the rueidis connection configuration.
type Config struct {
	// Addrs are the initial Redis addresses (host:port).
	Addrs []string `mapstructure:"addrs" validate:"required,min=1,dive,hostname_port"`

	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db" validate:"gte=0"`
	ClientName string `mapstructure:"client_name"`

	// DisableCache turns off server-assisted client-side caching. Servers
	// without RESP3 client tracking require it.
	DisableCache bool `mapstructure:"disable_cache"`

	// CacheSizeEachConn is the client-side cache size in bytes per connection.
	CacheSizeEachConn int `mapstructure:"cache_size_each_conn" validate:"gte=0"`

	DialTimeout      string `mapstructure:"dial_timeout" validate:"required,duration"`
	ConnWriteTimeout string `mapstructure:"conn_write_timeout" validate:"required,duration"`

	// CacheTTL bounds how long a cached bucket read is served locally.
	CacheTTL string `mapstructure:"cache_ttl" validate:"required,duration"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Addrs) == 0 {
		c.Addrs = []string{"localhost:6379"}
	}
	if c.CacheSizeEachConn == 0 {
		c.CacheSizeEachConn = 16 << 20
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.ConnWriteTimeout == "" {
		c.ConnWriteTimeout = "10s"
	}
	if c.CacheTTL == "" {
		c.CacheTTL = "1m"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
