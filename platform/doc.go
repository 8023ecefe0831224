// Package platform binds configuration to a backend and a bus manager.
//
// Config.Backend picks a factory from the backend registry ("redis" for
// go-redis, "redisson" for rueidis). Component implements
// component.Component so a process can start the connection, the
// subscription and any HTTP surface through one component.Registry:
//
//	p, err := platform.New(cfg, log)
//	p.OnStart(func(m *bus.Manager) {
//		bus.Handle(m, onGreeting)
//	})
//	registry.Register(p)
package platform
