// Package binding ties typed in-memory values to keys in a shared text store.
//
// Bindings are persisted values that:
//   - Survive restarts (stored in a storage.Store backend)
//   - Stay consistent across bindings on the same key, in the same process
//     (event bus) and across processes (relay)
//   - Degrade to in-memory-only behavior when no store is configured
//
// Example:
//
//	// Simple theme preference
//	theme := binding.Bind(store, "theme", "light")
//
//	// Lazy default, custom bus
//	count := binding.BindFunc(store, "count", func() int { return 0 },
//	    binding.WithBus[int](bus))
//
//	// Read/write
//	current := theme.Value()
//	theme.Set(ctx, "dark")
package binding

import (
	"context"
	"sync"

	"github.com/custodesk-dev/custodesk/pkg/events"
	"github.com/custodesk-dev/custodesk/pkg/storage"
)

// defaultValue is a tagged union of a literal default and a zero-argument
// producer. It is resolved at every use site, never cached, so producers
// that depend on captured state stay correct.
type defaultValue[T any] struct {
	literal T
	produce func() T
}

func (d defaultValue[T]) resolve() T {
	if d.produce != nil {
		return d.produce()
	}
	return d.literal
}

// Binding is a typed value persisted under a key in a shared store.
// All methods are safe for concurrent use. Storage faults never propagate:
// they are logged and the binding falls back to its default value or keeps
// its current in-memory state.
type Binding[T any] struct {
	store   storage.Store
	cfg     config[T]
	initial defaultValue[T]

	mu    sync.RWMutex
	key   string
	value T

	localSub  *events.Subscription
	remoteSub *events.Subscription
	closeOnce sync.Once
}

// Bind creates a binding for key with a literal default value.
//
// Unless WithoutInitialRead is given, the store is read synchronously: a
// stored value wins over the default. A nil store is allowed and leaves the
// binding in-memory only.
func Bind[T any](store storage.Store, key string, initial T, opts ...Option[T]) *Binding[T] {
	return bind(store, key, defaultValue[T]{literal: initial}, opts)
}

// BindFunc creates a binding whose default is computed by produce.
// The producer is invoked every time the default is needed.
func BindFunc[T any](store storage.Store, key string, produce func() T, opts ...Option[T]) *Binding[T] {
	return bind(store, key, defaultValue[T]{produce: produce}, opts)
}

func bind[T any](store storage.Store, key string, initial defaultValue[T], opts []Option[T]) *Binding[T] {
	cfg := defaultConfig[T]()
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Binding[T]{
		store:   store,
		cfg:     cfg,
		initial: initial,
		key:     key,
	}

	if cfg.initialRead && store != nil {
		b.value = b.read(context.Background(), key)
	} else {
		b.value = initial.resolve()
	}

	// Same-process writes announce themselves on EventLocal; the relay
	// republishes foreign writes on EventRemote. Both trigger a re-read.
	onChange := func(e events.Event) { b.onChange(e) }
	b.localSub = events.On(cfg.bus, storage.EventLocal, onChange)
	b.remoteSub = events.On(cfg.bus, storage.EventRemote, onChange)

	return b
}

// Value returns the current in-memory value.
func (b *Binding[T]) Value() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

// Key returns the binding's current key.
func (b *Binding[T]) Key() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.key
}

// Refresh re-reads the store and returns the refreshed value.
func (b *Binding[T]) Refresh(ctx context.Context) T {
	b.mu.RLock()
	key := b.key
	b.mu.RUnlock()

	v := b.read(ctx, key)

	b.mu.Lock()
	// A Rebind may have raced; only apply if the key is unchanged.
	if b.key == key {
		b.value = v
	}
	v = b.value
	b.mu.Unlock()
	return v
}

// Set serializes value, writes it to the store, updates the in-memory
// value, and announces the change. Without a store it logs a warning and
// updates memory only. Storage faults are logged, never returned.
func (b *Binding[T]) Set(ctx context.Context, value T) {
	b.mu.RLock()
	key := b.key
	b.mu.RUnlock()

	if b.store == nil {
		b.cfg.logger.Warn("binding: no store configured, keeping value in memory only", "key", key)
		b.setMemory(key, value)
		return
	}

	text, err := b.cfg.serialize(value)
	if err != nil {
		b.cfg.logger.Warn("binding: serialize failed", "key", key, "error", err)
		return
	}
	if err := b.store.Set(ctx, key, text); err != nil {
		b.cfg.logger.Warn("binding: store write failed", "key", key, "error", err)
		return
	}

	b.setMemory(key, value)
	b.cfg.bus.Emit(events.Event{Name: storage.EventLocal, Data: storage.Change{Key: key}})
}

// Update applies fn to the previous value and stores the result. The
// previous value is read fresh from the store, not from in-memory state,
// so sequential updates through different bindings are not lost.
func (b *Binding[T]) Update(ctx context.Context, fn func(prev T) T) {
	b.mu.RLock()
	key := b.key
	b.mu.RUnlock()

	b.Set(ctx, fn(b.read(ctx, key)))
}

// Remove deletes the key from the store, resets the in-memory value to the
// resolved default, and announces the change.
func (b *Binding[T]) Remove(ctx context.Context) {
	b.mu.RLock()
	key := b.key
	b.mu.RUnlock()

	if b.store == nil {
		b.cfg.logger.Warn("binding: no store configured, resetting in memory only", "key", key)
		b.setMemory(key, b.initial.resolve())
		return
	}

	if err := b.store.Remove(ctx, key); err != nil {
		b.cfg.logger.Warn("binding: store remove failed", "key", key, "error", err)
		return
	}

	b.setMemory(key, b.initial.resolve())
	b.cfg.bus.Emit(events.Event{Name: storage.EventLocal, Data: storage.Change{Key: key}})
}

// Rebind switches the binding to a new key and re-reads the store under it.
// State from the old key is discarded.
func (b *Binding[T]) Rebind(ctx context.Context, key string) {
	b.mu.Lock()
	if b.key == key {
		b.mu.Unlock()
		return
	}
	b.key = key
	b.mu.Unlock()

	b.Refresh(ctx)
}

// Close detaches the binding from change notifications. The last value
// stays readable via Value.
func (b *Binding[T]) Close() {
	b.closeOnce.Do(func() {
		b.localSub.Close()
		b.remoteSub.Close()
	})
}

// setMemory updates the in-memory value if key still matches.
func (b *Binding[T]) setMemory(key string, value T) {
	b.mu.Lock()
	if b.key == key {
		b.value = value
	}
	b.mu.Unlock()
}

// read loads and deserializes the value under key, falling back to the
// resolved default when the store is absent, the key is missing, or the
// stored text is malformed. A malformed value is logged, never surfaced.
func (b *Binding[T]) read(ctx context.Context, key string) T {
	if b.store == nil {
		return b.initial.resolve()
	}

	raw, ok, err := b.store.Get(ctx, key)
	if err != nil {
		b.cfg.logger.Warn("binding: store read failed", "key", key, "error", err)
		return b.initial.resolve()
	}
	if !ok {
		return b.initial.resolve()
	}

	v, err := b.cfg.deserialize(raw)
	if err != nil {
		b.cfg.logger.Warn("binding: malformed stored value", "key", key, "error", err)
		return b.initial.resolve()
	}
	return v
}

// onChange handles a change notification from either channel. A payload
// that is not a storage.Change carries no key and is treated as affecting
// every key.
func (b *Binding[T]) onChange(e events.Event) {
	change, ok := e.Data.(storage.Change)
	if ok && !change.Matches(b.Key()) {
		return
	}
	b.Refresh(context.Background())
}
