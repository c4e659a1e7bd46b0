package state

import (
	"context"
	"log/slog"
	"sync"
)

// Predicate decides whether a dispatched action should trigger an effect.
// It observes the action together with the state before and after it.
type Predicate[S any] func(action Action, prev, next S) bool

// Effect is imperative logic run outside the reducer for a matching
// transition. It receives the triggering action and an API for reading
// state, dispatching follow-ups, and accessing the middleware's extra
// dependency value.
type Effect[S, E any] func(ctx context.Context, action Action, api *ListenerAPI[S, E])

// ListenerAPI is the effect's handle on the store.
type ListenerAPI[S, E any] struct {
	store *Store[S]
	extra E
}

// State returns the store's current state (post-dispatch, and reflecting
// any later dispatches).
func (a *ListenerAPI[S, E]) State() S {
	return a.store.State()
}

// Dispatch dispatches a follow-up action.
func (a *ListenerAPI[S, E]) Dispatch(action Action) {
	a.store.Dispatch(action)
}

// Extra returns the dependency value the middleware was built with.
func (a *ListenerAPI[S, E]) Extra() E {
	return a.extra
}

// ListenerMiddleware runs registered effects on matching state transitions.
// One instance is typically created per process and attached to the
// process-wide store. E is an extra dependency value handed to every
// effect (repositories, loggers, clients).
type ListenerMiddleware[S, E any] struct {
	extra  E
	logger *slog.Logger
	ctx    context.Context

	mu      sync.RWMutex
	entries map[uint64]*listenerEntry[S, E]
	nextID  uint64

	store *Store[S]
	wg    sync.WaitGroup
}

type listenerEntry[S, E any] struct {
	predicate Predicate[S]
	effect    Effect[S, E]
}

// MiddlewareOption configures a ListenerMiddleware.
type MiddlewareOption[S, E any] func(*ListenerMiddleware[S, E])

// WithListenerLogger sets the logger used for recovered effect panics.
// Default: slog.Default().
func WithListenerLogger[S, E any](logger *slog.Logger) MiddlewareOption[S, E] {
	return func(m *ListenerMiddleware[S, E]) {
		m.logger = logger
	}
}

// WithBaseContext sets the context passed to effects.
// Default: context.Background().
func WithBaseContext[S, E any](ctx context.Context) MiddlewareOption[S, E] {
	return func(m *ListenerMiddleware[S, E]) {
		m.ctx = ctx
	}
}

// NewListenerMiddleware creates a listener middleware carrying extra as the
// dependency value for effects.
func NewListenerMiddleware[S, E any](extra E, opts ...MiddlewareOption[S, E]) *ListenerMiddleware[S, E] {
	m := &ListenerMiddleware[S, E]{
		extra:   extra,
		logger:  slog.Default(),
		ctx:     context.Background(),
		entries: make(map[uint64]*listenerEntry[S, E]),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Attach wires the middleware into a store. Must be called once, before
// the store receives dispatches that listeners should observe.
func (m *ListenerMiddleware[S, E]) Attach(store *Store[S]) {
	m.store = store
	store.addHook(m.onTransition)
}

// StartListening registers an effect to run whenever predicate matches a
// transition. The returned function stops the listener and is idempotent.
func (m *ListenerMiddleware[S, E]) StartListening(predicate Predicate[S], effect Effect[S, E]) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.entries[id] = &listenerEntry[S, E]{predicate: predicate, effect: effect}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.entries, id)
		m.mu.Unlock()
	}
}

// Wait blocks until all in-flight effects have returned.
// This is for graceful shutdown and testing.
func (m *ListenerMiddleware[S, E]) Wait() {
	m.wg.Wait()
}

// SetExtra replaces the dependency value handed to effects. Effects
// triggered after SetExtra returns see the new value.
func (m *ListenerMiddleware[S, E]) SetExtra(extra E) {
	m.mu.Lock()
	m.extra = extra
	m.mu.Unlock()
}

// onTransition fans the transition out to matching effects. Each effect
// runs on its own goroutine so it can dispatch without re-entering the
// hook synchronously.
func (m *ListenerMiddleware[S, E]) onTransition(action Action, prev, next S) {
	m.mu.RLock()
	matched := make([]*listenerEntry[S, E], 0, len(m.entries))
	for _, e := range m.entries {
		if e.predicate(action, prev, next) {
			matched = append(matched, e)
		}
	}
	extra := m.extra
	m.mu.RUnlock()

	api := &ListenerAPI[S, E]{store: m.store, extra: extra}
	for _, e := range matched {
		effect := e.effect
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("state: listener effect panicked",
						"action", action.Type, "panic", r)
				}
			}()
			effect(m.ctx, action, api)
		}()
	}
}

// ActionOfType is a predicate matching a single action type.
func ActionOfType[S any](actionType string) Predicate[S] {
	return func(action Action, prev, next S) bool {
		return action.Type == actionType
	}
}
