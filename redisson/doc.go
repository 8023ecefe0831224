// Package redisson is the distributed-objects bus backend built on rueidis.
//
// Client implements bus.Platform. Bucket and AtomicLong model values that
// several nodes share, with bucket reads served from the rueidis
// client-side cache:
//
//	client, err := redisson.New(redisson.Config{Addrs: []string{"localhost:6379"}}, log)
//	seen := redisson.NewAtomicLong(client, "redis-manager:seen")
//	n, err := seen.IncrementAndGet(ctx)
package redisson
