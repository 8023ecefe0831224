package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/lightdream/redismanager/errors"
	"github.com/lightdream/redismanager/logger"
	"github.com/lightdream/redismanager/observability"
	"github.com/lightdream/redismanager/resilience"
)

const builtinOwner = "redis-manager"

// Manager publishes events, routes incoming ones to handlers and matches
// responses to pending requests.
type Manager struct {
	cfg       Config
	platform  Platform
	log       *logger.Logger
	address   string
	broadcast string

	timeout        time.Duration
	reconnectDelay time.Duration

	nextID   atomic.Int64
	handlers *registry
	debug    atomic.Bool

	pendingMu sync.Mutex
	pending   map[int64]*Pending

	bulkhead *resilience.Bulkhead
	breaker  *resilience.CircuitBreaker
	metrics  *observability.BusMetrics

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithMetrics replaces the metric instruments built from the global meter.
func WithMetrics(metrics *observability.BusMetrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// New creates a Manager over platform. It does not subscribe until Start.
func New(cfg Config, platform Platform, log *logger.Logger, opts ...Option) (*Manager, error) {
	if platform == nil {
		return nil, apperrors.InvalidInput("platform", "platform is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("bus")

	m := &Manager{
		cfg:            cfg,
		platform:       platform,
		log:            log,
		address:        cfg.Address(cfg.ID),
		broadcast:      cfg.Address(Broadcast),
		timeout:        duration(cfg.Timeout),
		reconnectDelay: duration(cfg.ReconnectDelay),
		handlers:       newRegistry(),
		pending:        make(map[int64]*Pending),
	}
	m.debug.Store(cfg.Debug)

	m.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "bus-dispatch",
		MaxConcurrent: cfg.MaxConcurrentHandlers,
		MaxWait:       duration(cfg.HandlerQueueWait),
	})
	m.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "bus-publish",
		MaxFailures: cfg.BreakerMaxFailures,
		Timeout:     duration(cfg.BreakerTimeout),
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("publish circuit changed state", logger.Fields(
				"breaker", name, "from", from.String(), "to", to.String()))
		},
	})

	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		metrics, err := observability.NewBusMetrics(observability.Meter())
		if err != nil {
			log.Warn("bus metrics disabled", logger.ErrorFields("metrics", err))
		}
		m.metrics = metrics
	}

	if !cfg.DisablePing {
		Handle(m, func(ctx context.Context, in *Incoming[Ping]) error {
			return in.Respond(ctx, Pong{ID: m.cfg.ID, Time: time.Now().UTC()})
		}, WithOwner(builtinOwner), WithOrder(math.MinInt))
	}
	return m, nil
}

// Address returns this node's full address.
func (m *Manager) Address() string { return m.address }

// ID returns this node's listen id.
func (m *Manager) ID() string { return m.cfg.ID }

// Channel returns the pub/sub channel.
func (m *Manager) Channel() string { return m.cfg.Channel }

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.cfg }

// PendingCount returns the number of requests still awaiting a response.
func (m *Manager) PendingCount() int {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	return len(m.pending)
}

// Running reports whether the subscription loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// DisableDebugMessages stops logging every send and receive.
func (m *Manager) DisableDebugMessages() { m.debug.Store(false) }

// Start subscribes to the channel and waits for the first confirmation.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ready := make(chan struct{})
	m.running = true
	m.cancel = cancel
	m.loopDone = done
	m.mu.Unlock()

	go m.run(loopCtx, ready, done)

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case <-ready:
		m.log.Info("bus started", logger.Fields(
			logger.FieldChannel, m.cfg.Channel,
			"address", m.address,
			logger.FieldBackend, m.platform.Name(),
		))
		return nil
	case <-timer.C:
		_ = m.Stop(context.Background())
		return apperrors.ConnectionFailed("redis").WithCause(
			fmt.Errorf("subscription to %q not confirmed within %s", m.cfg.Channel, m.timeout))
	case <-ctx.Done():
		_ = m.Stop(context.Background())
		return ctx.Err()
	}
}

// Stop ends the subscription, fails every pending request and waits for
// running handlers. Calling Stop on a stopped manager is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	cancel, done := m.cancel, m.loopDone
	m.mu.Unlock()

	cancel()
	m.failPending(apperrors.ServiceUnavailable("redis manager"))

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := m.bulkhead.Wait(ctx); err != nil {
		return err
	}
	m.log.Info("bus stopped", logger.Fields(logger.FieldChannel, m.cfg.Channel))
	return nil
}

func (m *Manager) run(ctx context.Context, ready, done chan struct{}) {
	defer close(done)

	intake := make(chan *Envelope, m.cfg.IntakeBuffer)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.intakeLoop(ctx, intake)
	}()
	m.subscribeLoop(ctx, ready, intake)
	wg.Wait()
}

// intakeLoop moves received events into the handler pool. Waiting for a
// slot happens here so the backend's receive callback never blocks.
func (m *Manager) intakeLoop(ctx context.Context, intake <-chan *Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-intake:
			err := m.bulkhead.Go(ctx, func() { m.dispatch(ctx, env) })
			if err != nil && ctx.Err() == nil {
				m.log.Warn("handler pool full, dropping event", logger.MergeWithError(envFields(env), err))
				m.metrics.RecordDropped(ctx, observability.DropOverloaded)
			}
		}
	}
}

func (m *Manager) subscribeLoop(ctx context.Context, ready chan struct{}, intake chan<- *Envelope) {
	var once sync.Once
	for attempt := 0; ; attempt++ {
		reconnect := attempt > 0
		err := m.platform.Subscribe(ctx, m.cfg.Channel, func() {
			once.Do(func() { close(ready) })
			if reconnect {
				m.log.Info("reconnected", logger.Fields(logger.FieldChannel, m.cfg.Channel))
			}
		}, func(message string) {
			m.receive(ctx, intake, message)
		})
		if ctx.Err() != nil {
			return
		}

		fields := logger.Fields(logger.FieldChannel, m.cfg.Channel, "retry_in", m.reconnectDelay.String())
		if err != nil {
			fields = logger.MergeWithError(fields, err)
		}
		m.log.Error("lost connection to redis, retrying", fields)

		timer := time.NewTimer(m.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Send publishes ev to target and registers a pending request for the
// response. An empty target broadcasts.
func (m *Manager) Send(ctx context.Context, target string, ev Event) (*Pending, error) {
	env, err := m.envelope(target, ev)
	if err != nil {
		return nil, err
	}
	env.ID = m.nextID.Add(1)

	p := newPending(m, env.ID, env.ClassName)
	if err := m.addPending(p); err != nil {
		return nil, err
	}
	if err := m.publishEvent(ctx, env); err != nil {
		m.removePending(env.ID)
		return nil, err
	}
	return p, nil
}

// Notify publishes ev to target without waiting for a response.
func (m *Manager) Notify(ctx context.Context, target string, ev Event) error {
	env, err := m.envelope(target, ev)
	if err != nil {
		return err
	}
	env.ID = m.nextID.Add(1)
	return m.publishEvent(ctx, env)
}

// SendAndWait sends ev and blocks for the response. A timeout <= 0 uses
// the configured default.
func (m *Manager) SendAndWait(ctx context.Context, target string, ev Event, timeout time.Duration) (*Pending, error) {
	p, err := m.Send(ctx, target, ev)
	if err != nil {
		return nil, err
	}
	return p, p.Wait(ctx, timeout)
}

// Dispatch runs the local handlers for ev on the calling goroutine.
func (m *Manager) Dispatch(ctx context.Context, ev Event) error {
	if ev == nil {
		return apperrors.InvalidInput("event", "event is required")
	}
	payload, err := encodePayload(ev)
	if err != nil {
		return apperrors.InvalidPayload(ev.EventType(), err)
	}
	env := &Envelope{
		ClassName:  ev.EventType(),
		Originator: m.address,
		Target:     m.address,
		Payload:    payload,
	}
	if !m.handlers.has(env.ClassName) {
		return apperrors.NotFound("event handler", env.ClassName)
	}
	m.dispatch(ctx, env)
	return nil
}

// Unregister removes the handler with id.
func (m *Manager) Unregister(id HandlerID) bool {
	return m.handlers.remove(func(h *handlerEntry) bool { return h.id == id }) > 0
}

// UnregisterOwner removes every handler registered with WithOwner(owner).
func (m *Manager) UnregisterOwner(owner string) int {
	return m.handlers.remove(func(h *handlerEntry) bool { return h.owner == owner })
}

func (m *Manager) envelope(target string, ev Event) (*Envelope, error) {
	if !m.Running() {
		return nil, apperrors.ServiceUnavailable("redis manager")
	}
	if ev == nil {
		return nil, apperrors.InvalidInput("event", "event is required")
	}
	payload, err := encodePayload(ev)
	if err != nil {
		return nil, apperrors.InvalidPayload(ev.EventType(), err)
	}
	if target == "" {
		target = Broadcast
	}
	return &Envelope{
		ClassName:  ev.EventType(),
		Originator: m.address,
		Target:     m.cfg.Address(target),
		Payload:    payload,
	}, nil
}

func (m *Manager) publishEvent(ctx context.Context, env *Envelope) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanPublish,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(observability.MessageAttributes(
			m.cfg.Channel, env.ClassName, env.ID, env.Target, env.Originator)...),
	)
	defer span.End()

	if err := m.publish(ctx, env); err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}
	return nil
}

func (m *Manager) respond(ctx context.Context, id int64, target string, v any) error {
	env := &Envelope{
		ClassName:  ResponseType,
		ID:         id,
		Originator: m.address,
		Target:     target,
	}
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return apperrors.InvalidPayload("response", err)
		}
		env.Response = string(data)
		env.ResponseClassName = typeName(v)
	}
	return m.publish(ctx, env)
}

func (m *Manager) publish(ctx context.Context, env *Envelope) error {
	env.Headers = observability.InjectHeaders(ctx, env.Headers)
	data, err := json.Marshal(env)
	if err != nil {
		return apperrors.Internal(err)
	}
	m.debugLog("send", env)

	err = m.breaker.Execute(func() error {
		return m.platform.Publish(ctx, m.cfg.Channel, string(data))
	})
	switch {
	case err == nil:
	case apperrors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ServiceUnavailable("redis").WithCause(err)
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return apperrors.ConnectionFailed("redis").WithCause(err)
	}
	m.metrics.RecordPublished(ctx, m.cfg.Channel, env.ClassName)
	return nil
}

func (m *Manager) receive(ctx context.Context, intake chan<- *Envelope, message string) {
	if strings.TrimSpace(message) == "" {
		return
	}
	m.metrics.RecordReceived(ctx, m.cfg.Channel)

	env, err := decodeEnvelope(message)
	if err != nil {
		m.log.Warn("dropping undecodable message", logger.MergeWithError(
			logger.Fields(logger.FieldChannel, m.cfg.Channel), err))
		m.metrics.RecordDropped(ctx, observability.DropInvalid)
		return
	}

	if env.IsResponse() {
		m.receiveResponse(env)
		return
	}
	if env.Target != m.address && env.Target != m.broadcast {
		m.debugLog("receive not allowed", env)
		m.metrics.RecordDropped(ctx, observability.DropForeign)
		return
	}
	if !m.handlers.has(env.ClassName) {
		m.log.Error("event type not registered", envFields(env))
		m.metrics.RecordDropped(ctx, observability.DropUnknown)
		return
	}

	select {
	case intake <- env:
	default:
		m.log.Warn("intake queue full, dropping event", envFields(env))
		m.metrics.RecordDropped(ctx, observability.DropOverloaded)
	}
}

func (m *Manager) receiveResponse(env *Envelope) {
	if env.Target != m.address {
		m.debugLog("receive not allowed", env)
		return
	}
	m.debugLog("receive response", env)

	m.pendingMu.Lock()
	p := m.pending[env.ID]
	m.pendingMu.Unlock()
	if p == nil {
		m.log.Debug("no pending request for response", envFields(env))
		return
	}
	p.complete(env.Response, env.ResponseClassName)
}

func (m *Manager) dispatch(ctx context.Context, env *Envelope) {
	ctx = observability.ExtractHeaders(ctx, env.Headers)
	ctx, span := observability.StartSpan(ctx, observability.SpanDispatch,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(observability.MessageAttributes(
			m.cfg.Channel, env.ClassName, env.ID, env.Target, env.Originator)...),
	)
	defer span.End()

	m.debugLog("receive", env)
	for _, h := range m.handlers.lookup(env.ClassName) {
		if err := m.invoke(ctx, h, env); err != nil {
			observability.SetSpanError(ctx, err)
			m.metrics.RecordHandlerError(ctx, env.ClassName)
			fields := envFields(env)
			fields[logger.FieldHandlers] = h.id
			m.log.Error("event handler failed", logger.MergeWithError(fields, err))
		}
	}
}

func (m *Manager) invoke(ctx context.Context, h *handlerEntry, env *Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Internal(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return h.invoke(ctx, env)
}

// addPending registers p unless the manager has stopped. Holding mu keeps
// it ordered with Stop, which flips running before failing pending entries.
func (m *Manager) addPending(p *Pending) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return apperrors.ServiceUnavailable("redis manager")
	}
	m.pendingMu.Lock()
	m.pending[p.ID] = p
	m.pendingMu.Unlock()
	m.metrics.RecordPending(context.Background(), 1)
	return nil
}

func (m *Manager) removePending(id int64) bool {
	m.pendingMu.Lock()
	_, ok := m.pending[id]
	delete(m.pending, id)
	m.pendingMu.Unlock()
	if ok {
		m.metrics.RecordPending(context.Background(), -1)
	}
	return ok
}

func (m *Manager) failPending(err error) {
	m.pendingMu.Lock()
	failed := m.pending
	m.pending = make(map[int64]*Pending)
	m.pendingMu.Unlock()

	for _, p := range failed {
		p.fail(err)
	}
	if n := len(failed); n > 0 {
		m.metrics.RecordPending(context.Background(), -int64(n))
		m.log.Warn("failed pending requests on stop", logger.Fields("count", n))
	}
}

func (m *Manager) debugLog(msg string, env *Envelope) {
	if !m.debug.Load() {
		return
	}
	fields := envFields(env)
	if env.IsResponse() && env.ResponseClassName != "" {
		fields["response_type"] = env.ResponseClassName
	}
	m.log.Debug(msg, fields)
}

func envFields(env *Envelope) map[string]interface{} {
	return logger.Fields(
		logger.FieldEventType, env.ClassName,
		logger.FieldEventID, env.ID,
		logger.FieldOriginator, env.Originator,
		logger.FieldTarget, env.Target,
	)
}
