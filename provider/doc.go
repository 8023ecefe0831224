// Package provider defines the shape shared by the Redis backends: a named,
// health-checked Provider, a generic Registry of typed factories used to
// pick a backend by name, and ContextStore for typed JSON state.
//
// # Usage
//
//	reg := provider.NewRegistry[bus.Platform, platform.Config]()
//	reg.RegisterFactory("redis", newRedisBackend)
//	p, err := reg.Create("redis", cfg)
package provider
