package binding

import (
	"encoding/json"
	"log/slog"

	"github.com/custodesk-dev/custodesk/pkg/events"
)

// Option is a functional option for configuring a binding.
type Option[T any] func(*config[T])

type config[T any] struct {
	serialize   func(T) (string, error)
	deserialize func(string) (T, error)
	bus         *events.Bus
	logger      *slog.Logger
	initialRead bool
}

func defaultConfig[T any]() config[T] {
	return config[T]{
		serialize:   jsonSerialize[T],
		deserialize: jsonDeserialize[T],
		bus:         events.Default(),
		logger:      slog.Default(),
		initialRead: true,
	}
}

// WithSerializer sets a custom value-to-text encoder.
// Default: JSON encoding.
func WithSerializer[T any](fn func(T) (string, error)) Option[T] {
	return func(c *config[T]) {
		c.serialize = fn
	}
}

// WithDeserializer sets a custom text-to-value decoder.
// Default: JSON decoding, with the literal text "undefined" decoding to the
// zero value of T.
func WithDeserializer[T any](fn func(string) (T, error)) Option[T] {
	return func(c *config[T]) {
		c.deserialize = fn
	}
}

// WithBus sets the event bus for change notifications.
// Default: events.Default().
func WithBus[T any](bus *events.Bus) Option[T] {
	return func(c *config[T]) {
		c.bus = bus
	}
}

// WithLogger sets the logger for degraded-mode warnings.
// Default: slog.Default().
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(c *config[T]) {
		c.logger = logger
	}
}

// WithoutInitialRead skips the synchronous store read at bind time. The
// binding starts from its default value and reconciles on the first
// Refresh or change notification. Useful when the store may not be
// reachable yet at construction.
func WithoutInitialRead[T any]() Option[T] {
	return func(c *config[T]) {
		c.initialRead = false
	}
}

func jsonSerialize[T any](v T) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func jsonDeserialize[T any](text string) (T, error) {
	var v T
	// Stores written by earlier clients may hold the literal text
	// "undefined" for absent values; decode it as the zero value.
	if text == "undefined" {
		return v, nil
	}
	err := json.Unmarshal([]byte(text), &v)
	return v, err
}
