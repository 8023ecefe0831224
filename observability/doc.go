// Package observability provides the OpenTelemetry tracing and metrics used
// by the event bus.
//
// Setup:
//
//	shutdown, err := observability.Setup(ctx, cfg.Observability, "redis-manager", version.Version, "production")
//	defer shutdown(ctx)
//
// Trace context travels inside envelope headers:
//
//	env.Headers = observability.InjectHeaders(ctx, env.Headers)
//	ctx = observability.ExtractHeaders(ctx, env.Headers)
//
// Bus metrics:
//
//	metrics, err := observability.NewBusMetrics(observability.Meter())
//	metrics.RecordDropped(ctx, observability.DropUnknown)
package observability
