package component

import (
	"context"
	"fmt"
	"testing"

	"github.com/lightdream/redismanager/logger"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	if r == nil {
		t.Fatal("expected non-nil registry")
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	c := &mockComponent{name: "redis", health: Health{Name: "redis", Status: StatusHealthy}}

	if err := r.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	c := &mockComponent{name: "redis"}
	r.Register(c)

	err := r.Register(&mockComponent{name: "redis"})
	if err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	c := &mockComponent{name: "redis"}
	r.Register(c)

	got := r.Get("redis")
	if got == nil {
		t.Fatal("expected to get registered component")
	}
	if got.Name() != "redis" {
		t.Errorf("expected 'db', got %q", got.Name())
	}
}

func TestGetNotFound(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	got := r.Get("missing")
	if got != nil {
		t.Error("expected nil for unregistered component")
	}
}

func TestStartAll(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	order := []string{}

	r.Register(&mockComponent{
		name: "redis", startOrder: &order,
		health: Health{Name: "redis", Status: StatusHealthy},
	})
	r.Register(&mockComponent{
		name: "bus", startOrder: &order,
		health: Health{Name: "bus", Status: StatusHealthy},
	})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}

	if len(order) != 2 {
		t.Fatalf("expected 2 starts, got %d", len(order))
	}
	if order[0] != "redis" || order[1] != "bus" {
		t.Errorf("expected start order [redis, bus], got %v", order)
	}
}

func TestStartAllError(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	r.Register(&mockComponent{name: "redis", startErr: fmt.Errorf("connection refused")})

	err := r.StartAll(context.Background())
	if err == nil {
		t.Error("expected error from StartAll")
	}
}

func TestStopAllReverseOrder(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	order := []string{}

	r.Register(&mockComponent{name: "redis", stopOrder: &order, health: Health{Name: "redis", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "bus", stopOrder: &order, health: Health{Name: "bus", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "server", stopOrder: &order, health: Health{Name: "server", Status: StatusHealthy}})

	r.StartAll(context.Background())
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(order))
	}
	if order[0] != "server" || order[1] != "bus" || order[2] != "redis" {
		t.Errorf("expected reverse stop order [server, bus, redis], got %v", order)
	}
}

func TestStopAllSkipsUnstarted(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	order := []string{}
	r.Register(&mockComponent{name: "redis", stopOrder: &order})

	// Don't start, then stop
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected 0 stops for unstarted components, got %d", len(order))
	}
}

func TestStopAllWithErrors(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	r.Register(&mockComponent{
		name: "redis", stopErr: fmt.Errorf("stop failed"),
		health: Health{Name: "redis", Status: StatusHealthy},
	})
	r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Error("expected error from StopAll")
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	r.Register(&mockComponent{
		name:   "redis",
		health: Health{Name: "redis", Status: StatusHealthy, Message: "connected"},
	})
	r.Register(&mockComponent{
		name:   "bus",
		health: Health{Name: "bus", Status: StatusUnhealthy, Message: "timeout"},
	})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusHealthy {
		t.Errorf("expected redis healthy, got %s", results[0].Status)
	}
	if results[1].Status != StatusUnhealthy {
		t.Errorf("expected bus unhealthy, got %s", results[1].Status)
	}
}

func TestHealthStatusConstants(t *testing.T) {
	if StatusHealthy != "healthy" {
		t.Errorf("expected 'healthy', got %q", StatusHealthy)
	}
	if StatusUnhealthy != "unhealthy" {
		t.Errorf("expected 'unhealthy', got %q", StatusUnhealthy)
	}
	if StatusDegraded != "degraded" {
		t.Errorf("expected 'degraded', got %q", StatusDegraded)
	}
}

func TestStartAllRollsBackOnFailure(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	stops := []string{}
	r.Register(&mockComponent{name: "redis", stopOrder: &stops})
	r.Register(&mockComponent{name: "server", startErr: fmt.Errorf("port in use")})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	if len(stops) != 1 || stops[0] != "redis" {
		t.Errorf("expected started components to be stopped, got %v", stops)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Errorf("second stop should be a no-op, got %v", err)
	}
	if len(stops) != 1 {
		t.Errorf("expected no further stops, got %v", stops)
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name string
		in   []Health
		want HealthStatus
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Health{{Status: StatusHealthy}, {Status: StatusHealthy}}, StatusHealthy},
		{"one degraded", []Health{{Status: StatusHealthy}, {Status: StatusDegraded}}, StatusDegraded},
		{"unhealthy wins", []Health{{Status: StatusDegraded}, {Status: StatusUnhealthy}}, StatusUnhealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overall(tc.in); got != tc.want {
				t.Errorf("Overall() = %s, want %s", got, tc.want)
			}
		})
	}
}
