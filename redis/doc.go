// Package redis is the direct-protocol bus backend built on go-redis.
//
// Client implements bus.Platform (publish and a blocking subscribe loop)
// and adds the plain key operations the rest of the module uses:
//
//	client, err := redis.New(redis.Config{Addr: "localhost:6379"}, log)
//	mgr, err := bus.New(busCfg, client, log)
//
// TypedStore keeps JSON state under prefixed keys and implements
// provider.ContextStore. Locker hands out redsync mutexes:
//
//	lock, err := redis.NewLocker(client, "redis-manager").Lock(ctx, "leader", 10*time.Second)
//	defer lock.Unlock(ctx)
package redis
