package bus

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lightdream/redismanager/validation"
)

const (
	// DefaultChannelBase is the address namespace used when none is configured.
	DefaultChannelBase = "redis-manager"

	// Broadcast is the target id every node accepts.
	Broadcast = "*"

	addressSeparator = "#"
)

// Config holds the bus settings shared by every backend.
type Config struct {
	// ID is this node's listen id. Defaults to a random UUID.
	ID string `mapstructure:"id" validate:"required,excludes=#"`

	// ChannelBase namespaces every address ("<base>#<id>").
	ChannelBase string `mapstructure:"channel_base" validate:"required,excludes=#"`

	// Channel is the pub/sub channel all nodes share. Defaults to ChannelBase.
	Channel string `mapstructure:"channel" validate:"required"`

	// Timeout is the default wait for a response (e.g. "5s").
	Timeout string `mapstructure:"timeout" validate:"required,duration"`

	// ReconnectDelay is the pause before resubscribing after the subscription is lost.
	ReconnectDelay string `mapstructure:"reconnect_delay" validate:"required,duration"`

	MaxConcurrentHandlers int    `mapstructure:"max_concurrent_handlers" validate:"min=1"`
	HandlerQueueWait      string `mapstructure:"handler_queue_wait" validate:"required,duration"`

	// IntakeBuffer is how many received events may wait for a handler slot.
	// Events beyond it are dropped without blocking the subscription.
	IntakeBuffer int `mapstructure:"intake_buffer" validate:"min=1"`

	BreakerMaxFailures int    `mapstructure:"breaker_max_failures" validate:"min=1"`
	BreakerTimeout     string `mapstructure:"breaker_timeout" validate:"required,duration"`

	// Debug logs every send and receive.
	Debug bool `mapstructure:"debug"`

	// DisablePing stops the node from answering ping events.
	DisablePing bool `mapstructure:"disable_ping"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ChannelBase == "" {
		c.ChannelBase = DefaultChannelBase
	}
	if c.Channel == "" {
		c.Channel = c.ChannelBase
	}
	if c.Timeout == "" {
		c.Timeout = "5s"
	}
	if c.ReconnectDelay == "" {
		c.ReconnectDelay = "3s"
	}
	if c.MaxConcurrentHandlers <= 0 {
		c.MaxConcurrentHandlers = 256
	}
	if c.HandlerQueueWait == "" {
		c.HandlerQueueWait = "30s"
	}
	if c.IntakeBuffer <= 0 {
		c.IntakeBuffer = 1024
	}
	if c.BreakerMaxFailures <= 0 {
		c.BreakerMaxFailures = 5
	}
	if c.BreakerTimeout == "" {
		c.BreakerTimeout = "30s"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Address returns the full address for id. An id that already contains
// the separator is treated as a full address.
func (c *Config) Address(id string) string {
	if strings.Contains(id, addressSeparator) {
		return id
	}
	return c.ChannelBase + addressSeparator + id
}

// TargetID returns the id part of a full address.
func TargetID(address string) string {
	if i := strings.LastIndex(address, addressSeparator); i >= 0 {
		return address[i+1:]
	}
	return address
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
