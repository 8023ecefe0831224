package bus

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lightdream/redismanager/logger"
	"github.com/lightdream/redismanager/testutil"
)

// memBroker is an in-process pub/sub shared by memPlatforms.
type memBroker struct {
	mu         sync.Mutex
	subs       map[*memSub]struct{}
	publishErr error
	published  []string
}

type memSub struct {
	channel string
	ch      chan string
	kill    chan error
	done    chan struct{}
}

func newMemBroker() *memBroker {
	return &memBroker{subs: make(map[*memSub]struct{})}
}

func (b *memBroker) failPublish(err error) {
	b.mu.Lock()
	b.publishErr = err
	b.mu.Unlock()
}

func (b *memBroker) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *memBroker) messages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.published...)
}

// dropAll ends every subscription with err.
func (b *memBroker) dropAll(err error) {
	b.mu.Lock()
	subs := make([]*memSub, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()
	for _, s := range subs {
		select {
		case s.kill <- err:
		case <-s.done:
		}
		<-s.done
	}
}

// inject delivers message to subscribers without recording it.
func (b *memBroker) inject(channel, message string) {
	b.mu.Lock()
	var targets []*memSub
	for s := range b.subs {
		if s.channel == channel {
			targets = append(targets, s)
		}
	}
	b.mu.Unlock()
	for _, s := range targets {
		select {
		case s.ch <- message:
		case <-s.done:
		}
	}
}

type memPlatform struct {
	broker *memBroker
	// silent subscribes without ever confirming.
	silent bool
}

func (p *memPlatform) Name() string { return "memory" }
func (p *memPlatform) IsAvailable(ctx context.Context) bool { return true }
func (p *memPlatform) Close() error { return nil }

func (p *memPlatform) Publish(ctx context.Context, channel, message string) error {
	p.broker.mu.Lock()
	if err := p.broker.publishErr; err != nil {
		p.broker.mu.Unlock()
		return err
	}
	p.broker.published = append(p.broker.published, message)
	p.broker.mu.Unlock()
	p.broker.inject(channel, message)
	return nil
}

func (p *memPlatform) Subscribe(ctx context.Context, channel string, ready func(), fn func(string)) error {
	if p.silent {
		<-ctx.Done()
		return nil
	}
	s := &memSub{
		channel: channel,
		ch:      make(chan string, 256),
		kill:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	p.broker.mu.Lock()
	p.broker.subs[s] = struct{}{}
	p.broker.mu.Unlock()
	defer func() {
		p.broker.mu.Lock()
		delete(p.broker.subs, s)
		p.broker.mu.Unlock()
		close(s.done)
	}()

	ready()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-s.kill:
			return err
		case msg := <-s.ch:
			fn(msg)
		}
	}
}

// syncBuffer collects log output written from several goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger(w *syncBuffer) *logger.Logger {
	return logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "bus-test", w)
}

func newTestManager(t *testing.T, broker *memBroker, cfg Config) *Manager {
	t.Helper()
	if cfg.Timeout == "" {
		cfg.Timeout = "2s"
	}
	m, err := New(cfg, &memPlatform{broker: broker}, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func startManager(t *testing.T, m *Manager) {
	t.Helper()
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.Stop(ctx)
	})
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	testutil.Eventually(t, 2*time.Second, what, cond)
}
