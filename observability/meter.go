package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/lightdream/redismanager/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (development, staging, production).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows plain HTTP.
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns defaults for a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the global OpenTelemetry meter provider.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns the bus meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Drop reasons recorded on messages.dropped.
const (
	DropInvalid    = "invalid"
	DropUnknown    = "unknown"
	DropOverloaded = "overloaded"
	DropForeign    = "not_addressed"
)

// BusMetrics holds the instruments recorded by a bus manager. A nil
// *BusMetrics records nothing.
type BusMetrics struct {
	published       metric.Int64Counter
	received        metric.Int64Counter
	dropped         metric.Int64Counter
	pending         metric.Int64UpDownCounter
	requestDuration metric.Float64Histogram
	handlerErrors   metric.Int64Counter
}

// NewBusMetrics creates the bus instruments on the given meter.
func NewBusMetrics(meter metric.Meter) (*BusMetrics, error) {
	published, err := meter.Int64Counter("messages.published",
		metric.WithDescription("Envelopes published to the channel"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating messages.published counter: %w", err)
	}

	received, err := meter.Int64Counter("messages.received",
		metric.WithDescription("Envelopes received from the channel"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating messages.received counter: %w", err)
	}

	dropped, err := meter.Int64Counter("messages.dropped",
		metric.WithDescription("Received envelopes that were not dispatched, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating messages.dropped counter: %w", err)
	}

	pending, err := meter.Int64UpDownCounter("requests.pending",
		metric.WithDescription("Requests waiting for a response"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating requests.pending gauge: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("request.duration",
		metric.WithDescription("Round-trip time of answered requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request.duration histogram: %w", err)
	}

	handlerErrors, err := meter.Int64Counter("handler.errors",
		metric.WithDescription("Handler failures by event type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating handler.errors counter: %w", err)
	}

	return &BusMetrics{
		published:       published,
		received:        received,
		dropped:         dropped,
		pending:         pending,
		requestDuration: requestDuration,
		handlerErrors:   handlerErrors,
	}, nil
}

// RecordPublished counts one published envelope.
func (m *BusMetrics) RecordPublished(ctx context.Context, channel, eventType string) {
	if m == nil {
		return
	}
	m.published.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("event_type", eventType),
	))
}

// RecordReceived counts one received envelope.
func (m *BusMetrics) RecordReceived(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	m.received.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", channel)))
}

// RecordDropped counts one dropped envelope.
func (m *BusMetrics) RecordDropped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordPending adjusts the number of outstanding requests.
func (m *BusMetrics) RecordPending(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.pending.Add(ctx, delta)
}

// RecordRequest records the round trip of an answered request.
func (m *BusMetrics) RecordRequest(ctx context.Context, eventType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("status", status),
	))
}

// RecordHandlerError counts one failed handler invocation.
func (m *BusMetrics) RecordHandlerError(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.handlerErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}
