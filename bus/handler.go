package bus

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/lightdream/redismanager/errors"
)

// HandlerID identifies a registered handler.
type HandlerID uint64

// HandlerFunc handles one decoded event.
type HandlerFunc[E Event] func(ctx context.Context, in *Incoming[E]) error

// Incoming is an event delivered to a handler.
type Incoming[E Event] struct {
	ID         int64
	Originator string
	Target     string
	Event      E

	manager *Manager
}

// OriginatorID returns the sender's id without the channel base.
func (in *Incoming[E]) OriginatorID() string {
	return TargetID(in.Originator)
}

// Respond answers the event. A nil v sends an empty reply.
func (in *Incoming[E]) Respond(ctx context.Context, v any) error {
	return in.manager.respond(ctx, in.ID, in.Originator, v)
}

// HandlerOption configures a handler registration.
type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	order int
	owner string
}

// WithOrder sets the handler's position. Lower runs first.
func WithOrder(order int) HandlerOption {
	return func(o *handlerOptions) { o.order = order }
}

// WithOwner tags the handler so UnregisterOwner can remove it with its siblings.
func WithOwner(owner string) HandlerOption {
	return func(o *handlerOptions) { o.owner = owner }
}

// Handle registers fn for events of type E.
func Handle[E Event](m *Manager, fn HandlerFunc[E], opts ...HandlerOption) HandlerID {
	var zero E
	eventType := zero.EventType()
	return m.handlers.add(eventType, opts, func(ctx context.Context, env *Envelope) error {
		ev, err := decodePayload[E](env)
		if err != nil {
			return apperrors.InvalidPayload(eventType, err)
		}
		return fn(ctx, &Incoming[E]{
			ID:         env.ID,
			Originator: env.Originator,
			Target:     env.Target,
			Event:      ev,
			manager:    m,
		})
	})
}

// HandleRaw registers fn for eventType without a Go type behind it.
func HandleRaw(m *Manager, eventType string, fn HandlerFunc[RawEvent], opts ...HandlerOption) HandlerID {
	return m.handlers.add(eventType, opts, func(ctx context.Context, env *Envelope) error {
		ev, _ := decodePayload[RawEvent](env)
		return fn(ctx, &Incoming[RawEvent]{
			ID:         env.ID,
			Originator: env.Originator,
			Target:     env.Target,
			Event:      ev,
			manager:    m,
		})
	})
}

type handlerEntry struct {
	id        HandlerID
	eventType string
	order     int
	owner     string
	invoke    func(ctx context.Context, env *Envelope) error
}

type registry struct {
	mu     sync.RWMutex
	nextID HandlerID
	byType map[string][]*handlerEntry
}

func newRegistry() *registry {
	return &registry{byType: make(map[string][]*handlerEntry)}
}

func (r *registry) add(eventType string, opts []HandlerOption, invoke func(context.Context, *Envelope) error) HandlerID {
	var o handlerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry := &handlerEntry{
		id:        r.nextID,
		eventType: eventType,
		order:     o.order,
		owner:     o.owner,
		invoke:    invoke,
	}
	list := r.byType[eventType]
	i := sort.Search(len(list), func(i int) bool { return list[i].order > entry.order })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = entry
	r.byType[eventType] = list
	return entry.id
}

func (r *registry) remove(match func(*handlerEntry) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for eventType, list := range r.byType {
		kept := list[:0:0]
		for _, h := range list {
			if match(h) {
				removed++
				continue
			}
			kept = append(kept, h)
		}
		if len(kept) == 0 {
			delete(r.byType, eventType)
		} else {
			r.byType[eventType] = kept
		}
	}
	return removed
}

func (r *registry) lookup(eventType string) []*handlerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byType[eventType]
	if len(list) == 0 {
		return nil
	}
	return append([]*handlerEntry(nil), list...)
}

func (r *registry) has(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byType[eventType]) > 0
}
