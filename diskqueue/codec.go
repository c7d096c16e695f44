package diskqueue

import (
	"errors"
	"fmt"
	"reflect"

	jsoniter "github.com/json-iterator/go"

	"github.com/matiu2/finny"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnregistered is returned when an event's dynamic type was not
// registered with the codec.
var ErrUnregistered = errors.New("event type not registered")

// Codec turns queued events into bytes and back.
type Codec[E any, T comparable] interface {
	Encode(ev finny.Event[E, T]) ([]byte, error)
	Decode(data []byte) (finny.Event[E, T], error)
}

type envelope struct {
	Timer   bool                `json:"timer,omitempty"`
	Type    string              `json:"type,omitempty"`
	Payload jsoniter.RawMessage `json:"payload"`
}

// JSONCodec stores events as JSON envelopes. When E is an interface, every
// concrete event type must be registered under a stable name; a concrete E
// needs no registration.
type JSONCodec[E any, T comparable] struct {
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}

// NewJSONCodec creates a codec with no registered types.
func NewJSONCodec[E any, T comparable]() *JSONCodec[E, T] {
	return &JSONCodec[E, T]{
		byName: map[string]reflect.Type{},
		byType: map[reflect.Type]string{},
	}
}

// Register records the dynamic type of sample under name.
func (c *JSONCodec[E, T]) Register(name string, sample E) *JSONCodec[E, T] {
	t := reflect.TypeOf(sample)
	c.byName[name] = t
	c.byType[t] = name
	return c
}

func (c *JSONCodec[E, T]) Encode(ev finny.Event[E, T]) ([]byte, error) {
	var env envelope
	var payload any
	if id, ok := ev.Timer(); ok {
		env.Timer = true
		payload = id
	} else {
		e, _ := ev.Event()
		payload = e
		if len(c.byName) > 0 {
			name, ok := c.byType[reflect.TypeOf(e)]
			if !ok {
				return nil, fmt.Errorf("%w: %T", ErrUnregistered, e)
			}
			env.Type = name
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %v: %w", ev, err)
	}
	env.Payload = raw
	return json.Marshal(env)
}

func (c *JSONCodec[E, T]) Decode(data []byte) (finny.Event[E, T], error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return finny.Event[E, T]{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Timer {
		var id T
		if err := json.Unmarshal(env.Payload, &id); err != nil {
			return finny.Event[E, T]{}, fmt.Errorf("unmarshal timer: %w", err)
		}
		return finny.TimerEvent[E](id), nil
	}
	if env.Type == "" {
		var e E
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return finny.Event[E, T]{}, fmt.Errorf("unmarshal event: %w", err)
		}
		return finny.NewEvent[E, T](e), nil
	}
	t, ok := c.byName[env.Type]
	if !ok {
		return finny.Event[E, T]{}, fmt.Errorf("%w: %q", ErrUnregistered, env.Type)
	}
	v := reflect.New(t)
	if err := json.Unmarshal(env.Payload, v.Interface()); err != nil {
		return finny.Event[E, T]{}, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	e, ok := v.Elem().Interface().(E)
	if !ok {
		return finny.Event[E, T]{}, fmt.Errorf("%s does not implement the event type", env.Type)
	}
	return finny.NewEvent[E, T](e), nil
}
