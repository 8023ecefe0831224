package resilience

import (
	"context"
	stderrors "errors"
	"time"
)

// Common bulkhead errors.
var (
	ErrBulkheadFull    = stderrors.New("bulkhead is full")
	ErrBulkheadTimeout = stderrors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead in logs.
	Name string
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int
	// MaxWait is how long to wait for a slot. 0 means fail immediately.
	MaxWait time.Duration
	// OnReject is called when a request is rejected.
	OnReject func(name string, err error)
}

// DefaultBulkheadConfig returns the settings used for event dispatch.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: 256,
		MaxWait:       30 * time.Second,
	}
}

// Bulkhead limits how many calls run at once.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 256
	}

	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Execute runs fn within the bulkhead on the calling goroutine.
// Returns ErrBulkheadFull or ErrBulkheadTimeout if no slot is available.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()

	return fn()
}

// Go waits for a slot like Execute, then runs fn on a new goroutine and
// returns immediately. Use Wait to block until every started fn returns.
func (b *Bulkhead) Go(ctx context.Context, fn func()) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	go func() {
		defer b.release()
		fn()
	}()
	return nil
}

// Wait blocks until all running calls finish or ctx is done. It does so by
// taking every slot, so calls arriving meanwhile queue behind it.
func (b *Bulkhead) Wait(ctx context.Context) error {
	taken := 0
	defer func() {
		for ; taken > 0; taken-- {
			<-b.sem
		}
	}()
	for taken < cap(b.sem) {
		select {
		case b.sem <- struct{}{}:
			taken++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	err := b.tryAcquire(ctx)
	if err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name, err)
		}
		return err
	}
	return nil
}

func (b *Bulkhead) tryAcquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) release() {
	<-b.sem
}

// Available returns the number of available slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// MaxConcurrent returns the maximum concurrent calls allowed.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}
