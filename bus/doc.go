// Package bus is an event bus over a single Redis pub/sub channel with
// request/response semantics.
//
// Every node owns an address of the form "<channel base>#<id>" and listens
// on the shared channel. Events are JSON envelopes naming their type, the
// sender and the target; a node keeps those addressed to it or to the
// broadcast address "<channel base>#*" and hands them to the handlers
// registered for the type. A handler may Respond, which publishes a
// response envelope that completes the sender's Pending request.
//
//	m, err := bus.New(bus.Config{ID: "api-1"}, client, log)
//	if err != nil {
//		return err
//	}
//	bus.Handle(m, func(ctx context.Context, in *bus.Incoming[Greeting]) error {
//		return in.Respond(ctx, "hello "+in.Event.Name)
//	})
//	if err := m.Start(ctx); err != nil {
//		return err
//	}
//	defer m.Stop(context.Background())
//
//	reply, err := bus.Call[string](ctx, m, "worker-1", Greeting{Name: "bob"})
//
// The Platform is supplied by a backend package (redis or redisson).
// Delivery is at most once: nodes that are not subscribed when an event is
// published never see it.
package bus
