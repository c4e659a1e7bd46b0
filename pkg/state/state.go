// Package state provides a typed, reducer-driven state store with
// subscribers, memoized selectors, and a listener middleware for running
// imperative effects on state transitions.
//
// Example:
//
//	store := state.New(Counter{}, func(s Counter, a state.Action) Counter {
//	    if a.Type == "increment" {
//	        s.N++
//	    }
//	    return s
//	})
//	store.Dispatch(state.Action{Type: "increment"})
package state

import (
	"reflect"
	"sync"
)

// Action describes a state transition request.
type Action struct {
	Type    string
	Payload any
}

// Reducer computes the next state from the current state and an action.
// Reducers must be pure: no I/O, no mutation of the previous state.
type Reducer[S any] func(S, Action) S

// transitionHook observes a completed dispatch. Used by ListenerMiddleware.
type transitionHook[S any] func(action Action, prev, next S)

// Store holds application state of shape S and is safe for concurrent use.
type Store[S any] struct {
	mu      sync.RWMutex
	state   S
	reducer Reducer[S]

	subMu   sync.RWMutex
	subs    map[uint64]func(S)
	hooks   []transitionHook[S]
	nextSub uint64
}

// New creates a store with the given initial state and reducer.
func New[S any](initial S, reducer Reducer[S]) *Store[S] {
	return &Store[S]{
		state:   initial,
		reducer: reducer,
		subs:    make(map[uint64]func(S)),
	}
}

// State returns the current state.
func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch runs the reducer and notifies subscribers and transition hooks.
// The reducer runs under the write lock; notification happens after release
// so subscribers and listener effects may dispatch follow-up actions.
func (s *Store[S]) Dispatch(action Action) {
	s.mu.Lock()
	prev := s.state
	next := s.reducer(prev, action)
	s.state = next
	s.mu.Unlock()

	s.subMu.RLock()
	subs := make([]func(S), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	hooks := make([]transitionHook[S], len(s.hooks))
	copy(hooks, s.hooks)
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(next)
	}
	for _, hook := range hooks {
		hook(action, prev, next)
	}
}

// Subscribe registers fn to be called after every dispatch with the new
// state. The returned function unsubscribes and is idempotent.
func (s *Store[S]) Subscribe(fn func(S)) func() {
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// addHook registers a transition hook.
func (s *Store[S]) addHook(hook transitionHook[S]) {
	s.subMu.Lock()
	s.hooks = append(s.hooks, hook)
	s.subMu.Unlock()
}

// Selector is a memoized derived value over a store. The computation reruns
// only when the store's state has changed since the last read.
type Selector[S, V any] struct {
	store   *Store[S]
	compute func(S) V

	mu    sync.Mutex
	last  S
	value V
	valid bool
}

// NewSelector creates a selector computing a derived value from the store.
func NewSelector[S, V any](store *Store[S], compute func(S) V) *Selector[S, V] {
	return &Selector[S, V]{store: store, compute: compute}
}

// Value returns the derived value, recomputing it if the state changed.
func (sel *Selector[S, V]) Value() V {
	state := sel.store.State()

	sel.mu.Lock()
	defer sel.mu.Unlock()

	if !sel.valid || !reflect.DeepEqual(sel.last, state) {
		sel.value = sel.compute(state)
		sel.last = state
		sel.valid = true
	}
	return sel.value
}
