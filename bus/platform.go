package bus

import (
	"context"

	"github.com/lightdream/redismanager/provider"
)

// Platform is the Redis client a Manager publishes and subscribes through.
type Platform interface {
	provider.Provider

	// Publish sends message on channel.
	Publish(ctx context.Context, channel, message string) error

	// Subscribe listens on channel, calling ready once the subscription is
	// confirmed and fn for every message. It blocks until ctx is done
	// (returning nil) or the subscription fails (returning the error).
	Subscribe(ctx context.Context, channel string, ready func(), fn func(message string)) error

	// Close releases the client.
	Close() error
}
