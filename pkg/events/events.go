// Package events provides a small named-event bus with swappable handlers.
//
// A Subscription attaches a handler for a named event on a Target. The
// handler can be replaced at any time without re-subscribing, and the
// subscription only re-registers when the event name or the target itself
// changes. A nil target yields an inert subscription whose methods are all
// safe to call.
//
// Example:
//
//	bus := events.NewBus()
//	sub := events.On(bus, "storage.local", func(e events.Event) { ... })
//	defer sub.Close()
//
//	bus.Emit(events.Event{Name: "storage.local", Data: change})
package events

import (
	"sync"
	"sync/atomic"
)

// Event is a named notification with an optional payload.
type Event struct {
	Name string
	Data any
}

// Handler processes a single event.
type Handler func(Event)

// Listener is a registered handler slot. The active handler is held behind
// an atomic pointer so it can be swapped while the listener stays attached.
type Listener struct {
	id uint64
	fn atomic.Pointer[Handler]
}

// ID returns the unique identifier for this listener.
func (l *Listener) ID() uint64 {
	return l.id
}

// dispatch invokes the current handler, if any.
func (l *Listener) dispatch(e Event) {
	if fn := l.fn.Load(); fn != nil && *fn != nil {
		(*fn)(e)
	}
}

var listenerID uint64

func nextID() uint64 {
	return atomic.AddUint64(&listenerID, 1)
}

// Target is anything listeners can be attached to.
type Target interface {
	AddListener(name string, l *Listener)
	RemoveListener(name string, l *Listener)
}

// Bus is an in-process event target. It is safe for concurrent use.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]*Listener
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]*Listener)}
}

// defaultBus is the process-wide bus used when no explicit bus is wired.
var defaultBus = NewBus()

// Default returns the process-wide event bus.
func Default() *Bus {
	return defaultBus
}

// AddListener registers a listener for the named event.
// Deduplicates by listener ID to prevent double-subscription.
func (b *Bus) AddListener(name string, l *Listener) {
	if l == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.listeners[name] {
		if existing.ID() == l.ID() {
			return
		}
	}
	b.listeners[name] = append(b.listeners[name], l)
}

// RemoveListener detaches a listener from the named event.
func (b *Bus) RemoveListener(name string, l *Listener) {
	if l == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.listeners[name]
	for i, existing := range subs {
		if existing.ID() == l.ID() {
			subs[i] = subs[len(subs)-1]
			b.listeners[name] = subs[:len(subs)-1]
			return
		}
	}
}

// Emit delivers the event to every listener registered under its name.
// Uses copy-before-notify so handlers run without the bus lock held and
// may themselves subscribe, unsubscribe, or emit.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	subs := make([]*Listener, len(b.listeners[e.Name]))
	copy(subs, b.listeners[e.Name])
	b.mu.RUnlock()

	for _, l := range subs {
		l.dispatch(e)
	}
}

// Len reports the number of listeners for the named event.
// This is for monitoring/testing purposes.
func (b *Bus) Len(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}

// Subscription binds a handler to a (target, name) pair.
type Subscription struct {
	mu       sync.Mutex
	target   Target
	name     string
	listener *Listener
	closed   bool
}

// On attaches handler for the named event on target and returns the
// subscription. A nil target returns an inert subscription: the handler is
// kept but never invoked until Rebind points at a live target.
func On(target Target, name string, handler Handler) *Subscription {
	l := &Listener{id: nextID()}
	l.fn.Store(&handler)

	s := &Subscription{
		target:   target,
		name:     name,
		listener: l,
	}
	if target != nil {
		target.AddListener(name, l)
	}
	return s
}

// Swap replaces the handler without detaching the listener. Events emitted
// after Swap returns see the new handler.
func (s *Subscription) Swap(handler Handler) {
	s.listener.fn.Store(&handler)
}

// Rebind moves the subscription to a new target and/or event name, keeping
// the current handler. If neither changed, it is a no-op. Rebinding a closed
// subscription does nothing.
func (s *Subscription) Rebind(target Target, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || (target == s.target && name == s.name) {
		return
	}

	if s.target != nil {
		s.target.RemoveListener(s.name, s.listener)
	}
	s.target = target
	s.name = name
	if target != nil {
		target.AddListener(name, s.listener)
	}
}

// Close detaches the listener. It is idempotent.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.target != nil {
		s.target.RemoveListener(s.name, s.listener)
	}
}
