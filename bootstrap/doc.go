// Package bootstrap runs a redis-manager process: it validates the typed
// configuration, starts the registered components in order, blocks until
// SIGINT/SIGTERM (Run) or until a finite task returns (RunTask), then
// stops everything in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(platformComponent)
//	return app.RunTask(ctx, func(ctx context.Context) error {
//		return ping(ctx, platformComponent.Manager())
//	})
package bootstrap
