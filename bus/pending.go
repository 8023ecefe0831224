package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	apperrors "github.com/lightdream/redismanager/errors"
)

// Pending is a request waiting for its response.
type Pending struct {
	ID        int64
	EventType string

	manager *Manager
	sentAt  time.Time
	done    chan struct{}
	once    sync.Once

	mu           sync.Mutex
	finished     bool
	timedOut     bool
	response     string
	responseType string
	err          error
}

func newPending(m *Manager, id int64, eventType string) *Pending {
	return &Pending{
		ID:        id,
		EventType: eventType,
		manager:   m,
		sentAt:    time.Now(),
		done:      make(chan struct{}),
	}
}

func (p *Pending) complete(response, responseType string) {
	p.once.Do(func() {
		p.mu.Lock()
		p.finished = true
		p.response = response
		p.responseType = responseType
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *Pending) fail(err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	})
}

// Done is closed once a response arrives or the manager stops.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Finished reports whether the response arrived.
func (p *Pending) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished
}

// TimedOut reports whether Wait gave up on the response.
func (p *Pending) TimedOut() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timedOut
}

// Response returns the raw JSON reply. Empty means a nil reply.
func (p *Pending) Response() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.response
}

// ResponseType returns the type name the responder recorded.
func (p *Pending) ResponseType() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.responseType
}

// Wait blocks until the response arrives, timeout elapses, ctx is done or
// the manager stops. A timeout <= 0 uses the manager default. The request
// is forgotten by the manager once Wait returns.
func (p *Pending) Wait(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.manager.timeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	defer p.manager.removePending(p.ID)

	status := "ok"
	defer func() {
		p.manager.metrics.RecordRequest(ctx, p.EventType, status, time.Since(p.sentAt))
	}()

	select {
	case <-p.done:
		p.mu.Lock()
		err := p.err
		p.mu.Unlock()
		if err != nil {
			status = "unavailable"
		}
		return err
	case <-timer.C:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.finished {
			return nil
		}
		if p.err != nil {
			status = "unavailable"
			return p.err
		}
		p.timedOut = true
		status = "timeout"
		return apperrors.Timeout(p.EventType).
			WithDetail("id", p.ID).
			WithDetail("timeout", timeout.String())
	case <-ctx.Done():
		status = "canceled"
		return ctx.Err()
	}
}

// Decode unmarshals the reply into v. A nil reply leaves v untouched.
func (p *Pending) Decode(v any) error {
	resp := p.Response()
	if resp == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(resp), v); err != nil {
		return apperrors.InvalidPayload("response", err).WithDetail("id", p.ID)
	}
	return nil
}
