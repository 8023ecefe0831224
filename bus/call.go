package bus

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/lightdream/redismanager/observability"
)

// Call sends ev to target and decodes the response into R.
func Call[R any](ctx context.Context, m *Manager, target string, ev Event) (R, error) {
	return CallTimeout[R](ctx, m, target, ev, 0)
}

// CallTimeout is Call with an explicit timeout. A timeout <= 0 uses the
// configured default.
func CallTimeout[R any](ctx context.Context, m *Manager, target string, ev Event, timeout time.Duration) (R, error) {
	var out R
	if ev == nil {
		_, err := m.envelope(target, ev)
		return out, err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanCall,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.MessageAttributes(
			m.cfg.Channel, ev.EventType(), 0, m.cfg.Address(target), m.address)...),
	)
	defer span.End()

	p, err := m.SendAndWait(ctx, target, ev, timeout)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return out, err
	}
	if err := p.Decode(&out); err != nil {
		observability.SetSpanError(ctx, err)
		return out, err
	}
	return out, nil
}

// CallAsync runs Call on a new goroutine. onFail receives every error,
// timeouts included. Nil callbacks are skipped.
func CallAsync[R any](ctx context.Context, m *Manager, target string, ev Event, onSuccess func(R), onFail func(error)) {
	go func() {
		out, err := Call[R](ctx, m, target, ev)
		if err != nil {
			if onFail != nil {
				onFail(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(out)
		}
	}()
}
