package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"

	apperrors "github.com/lightdream/redismanager/errors"
)

// Locker hands out distributed mutexes stored next to the bus data.
type Locker struct {
	rs     *redsync.Redsync
	prefix string
}

// NewLocker creates a Locker whose keys are prefixed with prefix.
func NewLocker(client *Client, prefix string) *Locker {
	return &Locker{
		rs:     redsync.New(goredis.NewPool(client.Unwrap())),
		prefix: prefix,
	}
}

// Lock is a held distributed mutex.
type Lock struct {
	name  string
	mutex *redsync.Mutex
}

// Lock acquires the mutex called name for ttl without waiting. Contention
// returns an ALREADY_EXISTS error.
func (l *Locker) Lock(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	key := name
	if l.prefix != "" {
		key = l.prefix + ":lock:" + name
	}
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, lockError(name, err)
	}
	return &Lock{name: name, mutex: mutex}, nil
}

// Name returns the lock name.
func (lk *Lock) Name() string {
	return lk.name
}

// Until returns when the lock expires unless extended.
func (lk *Lock) Until() time.Time {
	return lk.mutex.Until()
}

// Unlock releases the lock. A lock that expired or changed hands returns
// NOT_FOUND.
func (lk *Lock) Unlock(ctx context.Context) error {
	ok, err := lk.mutex.UnlockContext(ctx)
	return lk.settle(ctx, ok, err)
}

// Extend resets the lock expiry to its original ttl.
func (lk *Lock) Extend(ctx context.Context) error {
	ok, err := lk.mutex.ExtendContext(ctx)
	return lk.settle(ctx, ok, err)
}

func (lk *Lock) settle(ctx context.Context, ok bool, err error) error {
	if ok {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return apperrors.NotFound("lock", lk.name).WithCause(err)
}

func lockError(name string, err error) error {
	var taken *redsync.ErrTaken
	if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
		return apperrors.AlreadyExists("lock "+name).WithCause(err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.ConnectionFailed("redis").WithCause(err)
}
