package state

import "testing"

type counter struct {
	N int
}

func reduceCounter(s counter, a Action) counter {
	switch a.Type {
	case "increment":
		s.N++
	case "add":
		if n, ok := a.Payload.(int); ok {
			s.N += n
		}
	}
	return s
}

func TestDispatchRunsReducer(t *testing.T) {
	store := New(counter{}, reduceCounter)

	store.Dispatch(Action{Type: "increment"})
	store.Dispatch(Action{Type: "add", Payload: 4})

	if got := store.State().N; got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}

func TestUnknownActionLeavesStateUnchanged(t *testing.T) {
	store := New(counter{N: 7}, reduceCounter)

	store.Dispatch(Action{Type: "noop"})

	if got := store.State().N; got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

func TestSubscribeObservesNewState(t *testing.T) {
	store := New(counter{}, reduceCounter)

	var seen []int
	unsubscribe := store.Subscribe(func(s counter) {
		seen = append(seen, s.N)
	})

	store.Dispatch(Action{Type: "increment"})
	store.Dispatch(Action{Type: "increment"})
	unsubscribe()
	store.Dispatch(Action{Type: "increment"})

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("expected [1 2], got %v", seen)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	store := New(counter{}, reduceCounter)
	unsubscribe := store.Subscribe(func(counter) {})
	unsubscribe()
	unsubscribe()
}

func TestSubscriberMayDispatch(t *testing.T) {
	store := New(counter{}, reduceCounter)

	var once bool
	store.Subscribe(func(s counter) {
		if !once {
			once = true
			store.Dispatch(Action{Type: "add", Payload: 10})
		}
	})

	// Must not deadlock.
	store.Dispatch(Action{Type: "increment"})

	if got := store.State().N; got != 11 {
		t.Errorf("expected 11, got %d", got)
	}
}

func TestSelectorMemoizes(t *testing.T) {
	store := New(counter{}, reduceCounter)

	var computations int
	sel := NewSelector(store, func(s counter) int {
		computations++
		return s.N * 2
	})

	if got := sel.Value(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := sel.Value(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if computations != 1 {
		t.Errorf("expected 1 computation for unchanged state, got %d", computations)
	}

	store.Dispatch(Action{Type: "add", Payload: 3})
	if got := sel.Value(); got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
	if computations != 2 {
		t.Errorf("expected recompute after change, got %d computations", computations)
	}
}
