// Package resilience holds the fault-tolerance primitives the bus relies on:
//
//   - CircuitBreaker: wraps publishing so a dead Redis fails fast
//   - Bulkhead: caps concurrent handler dispatch and drains on shutdown
//   - Retry: exponential backoff with jitter for the initial connect
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("publish"))
//	err := cb.Execute(func() error { return platform.Publish(ctx, channel, msg) })
package resilience
