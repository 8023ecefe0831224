package bus

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.ID == "" {
		t.Error("expected a generated ID")
	}
	if cfg.ChannelBase != DefaultChannelBase {
		t.Errorf("ChannelBase = %q", cfg.ChannelBase)
	}
	if cfg.Channel != DefaultChannelBase {
		t.Errorf("Channel = %q, want channel base", cfg.Channel)
	}
	if cfg.Timeout != "5s" || cfg.ReconnectDelay != "3s" {
		t.Errorf("Timeout = %q, ReconnectDelay = %q", cfg.Timeout, cfg.ReconnectDelay)
	}
	if cfg.MaxConcurrentHandlers != 256 || cfg.HandlerQueueWait != "30s" {
		t.Errorf("bulkhead defaults = %d, %q", cfg.MaxConcurrentHandlers, cfg.HandlerQueueWait)
	}
	if cfg.IntakeBuffer != 1024 {
		t.Errorf("IntakeBuffer = %d", cfg.IntakeBuffer)
	}
	if cfg.BreakerMaxFailures != 5 || cfg.BreakerTimeout != "30s" {
		t.Errorf("breaker defaults = %d, %q", cfg.BreakerMaxFailures, cfg.BreakerTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	other := Config{}
	other.ApplyDefaults()
	if other.ID == cfg.ID {
		t.Error("generated IDs should differ")
	}
}

func TestConfig_ChannelFollowsBase(t *testing.T) {
	cfg := Config{ChannelBase: "games"}
	cfg.ApplyDefaults()
	if cfg.Channel != "games" {
		t.Errorf("Channel = %q, want games", cfg.Channel)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"id with separator", func(c *Config) { c.ID = "a#b" }},
		{"base with separator", func(c *Config) { c.ChannelBase = "x#y" }},
		{"bad timeout", func(c *Config) { c.Timeout = "soon" }},
		{"bad reconnect delay", func(c *Config) { c.ReconnectDelay = "3" }},
		{"bad breaker timeout", func(c *Config) { c.BreakerTimeout = "later" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{ID: "node"}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfig_Address(t *testing.T) {
	cfg := Config{ChannelBase: "redis-manager"}
	tests := []struct {
		id, want string
	}{
		{"api-1", "redis-manager#api-1"},
		{"*", "redis-manager#*"},
		{"other#api-2", "other#api-2"},
	}
	for _, tt := range tests {
		if got := cfg.Address(tt.id); got != tt.want {
			t.Errorf("Address(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestTargetID(t *testing.T) {
	tests := map[string]string{
		"redis-manager#api-1": "api-1",
		"a#b#c":               "c",
		"plain":               "plain",
		"base#":               "",
	}
	for in, want := range tests {
		if got := TargetID(in); got != want {
			t.Errorf("TargetID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnvelope_WireNames(t *testing.T) {
	env := Envelope{
		ClassName:  "greeting",
		ID:         7,
		Originator: "redis-manager#a",
		Target:     "redis-manager#b",
		Payload:    json.RawMessage(`{"name":"bob"}`),
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, key := range []string{`"className":"greeting"`, `"id":7`, `"originator"`, `"redisTarget":"redis-manager#b"`, `"payload":{"name":"bob"}`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("encoded envelope %s missing %s", data, key)
		}
	}
	if strings.Contains(string(data), "response") {
		t.Errorf("event envelope should omit response fields: %s", data)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	if _, err := decodeEnvelope("not json"); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := decodeEnvelope(`{"id":1}`); err == nil {
		t.Error("expected error for missing className")
	}
	env, err := decodeEnvelope(`{"className":"response","id":3,"redisTarget":"b#x","response":"\"ok\""}`)
	if err != nil {
		t.Fatalf("decodeEnvelope: %v", err)
	}
	if !env.IsResponse() || env.ID != 3 || env.Response != `"ok"` {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestRawEvent_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(RawEvent{Type: "x", Data: json.RawMessage(`{"a":1}`)})
	if err != nil || string(data) != `{"a":1}` {
		t.Errorf("Marshal = %s, %v", data, err)
	}
	data, err = json.Marshal(RawEvent{Type: "x"})
	if err != nil || string(data) != "null" {
		t.Errorf("empty Marshal = %s, %v", data, err)
	}
	if _, err := json.Marshal(RawEvent{Type: "x", Data: json.RawMessage(`{`)}); err == nil {
		t.Error("expected error for invalid raw payload")
	}
}
