package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ResponseType is the className carried by response envelopes.
const ResponseType = "response"

// Envelope is the JSON message published on the shared channel.
type Envelope struct {
	ClassName         string            `json:"className"`
	ID                int64             `json:"id"`
	Originator        string            `json:"originator"`
	Target            string            `json:"redisTarget"`
	Payload           json.RawMessage   `json:"payload,omitempty"`
	Response          string            `json:"response,omitempty"`
	ResponseClassName string            `json:"responseClassName,omitempty"`
	Headers           map[string]string `json:"headers,omitempty"`
}

// IsResponse reports whether the envelope answers an earlier request.
func (e *Envelope) IsResponse() bool {
	return e.ClassName == ResponseType
}

func decodeEnvelope(message string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(message), &env); err != nil {
		return nil, err
	}
	if env.ClassName == "" {
		return nil, errors.New("envelope has no className")
	}
	return &env, nil
}

// Event is implemented by every payload sent over the bus. EventType must
// work on the zero value, so implement it with a value receiver.
type Event interface {
	EventType() string
}

// RawEvent is an Event whose type and payload are only known at runtime.
type RawEvent struct {
	Type string
	Data json.RawMessage
}

// EventType returns the runtime type name.
func (e RawEvent) EventType() string { return e.Type }

// MarshalJSON emits Data unchanged.
func (e RawEvent) MarshalJSON() ([]byte, error) {
	if len(e.Data) == 0 {
		return []byte("null"), nil
	}
	if !json.Valid(e.Data) {
		return nil, fmt.Errorf("raw event %q: payload is not valid JSON", e.Type)
	}
	return e.Data, nil
}

// Ping asks a node to prove it is alive.
type Ping struct{}

// EventType returns "ping".
func (Ping) EventType() string { return "ping" }

// Pong answers a Ping.
type Pong struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`
}

func encodePayload(ev Event) (json.RawMessage, error) {
	return json.Marshal(ev)
}

// decodePayload fills a fresh E from the envelope payload.
func decodePayload[E Event](env *Envelope) (E, error) {
	var ev E
	if raw, ok := any(&ev).(*RawEvent); ok {
		raw.Type = env.ClassName
		raw.Data = append(json.RawMessage(nil), env.Payload...)
		return ev, nil
	}
	if len(env.Payload) == 0 {
		return ev, nil
	}
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return ev, err
	}
	return ev, nil
}

// typeName is the responseClassName recorded for a reply value.
func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
