package events

import (
	"sync"
	"testing"
)

func TestBusEmitDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	var got []string

	sub := On(bus, "change", func(e Event) {
		got = append(got, e.Data.(string))
	})
	defer sub.Close()

	bus.Emit(Event{Name: "change", Data: "a"})
	bus.Emit(Event{Name: "change", Data: "b"})
	bus.Emit(Event{Name: "other", Data: "ignored"})

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestSubscriptionSwapKeepsRegistration(t *testing.T) {
	bus := NewBus()
	var first, second int

	sub := On(bus, "change", func(Event) { first++ })
	defer sub.Close()

	bus.Emit(Event{Name: "change"})

	sub.Swap(func(Event) { second++ })
	bus.Emit(Event{Name: "change"})

	if first != 1 {
		t.Errorf("old handler: expected 1 call, got %d", first)
	}
	if second != 1 {
		t.Errorf("new handler: expected 1 call, got %d", second)
	}
	if bus.Len("change") != 1 {
		t.Errorf("expected 1 listener after swap, got %d", bus.Len("change"))
	}
}

func TestSubscriptionRebind(t *testing.T) {
	busA := NewBus()
	busB := NewBus()
	var calls int

	sub := On(busA, "change", func(Event) { calls++ })
	defer sub.Close()

	sub.Rebind(busB, "renamed")

	busA.Emit(Event{Name: "change"})
	if calls != 0 {
		t.Fatalf("old target still delivering after rebind")
	}
	if busA.Len("change") != 0 {
		t.Errorf("expected old target to be empty, got %d listeners", busA.Len("change"))
	}

	busB.Emit(Event{Name: "renamed"})
	if calls != 1 {
		t.Errorf("expected 1 call on new target, got %d", calls)
	}
}

func TestSubscriptionRebindSameTargetNoop(t *testing.T) {
	bus := NewBus()
	sub := On(bus, "change", func(Event) {})
	defer sub.Close()

	sub.Rebind(bus, "change")
	if bus.Len("change") != 1 {
		t.Errorf("expected 1 listener, got %d", bus.Len("change"))
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	bus := NewBus()
	var calls int

	sub := On(bus, "change", func(Event) { calls++ })
	sub.Close()
	sub.Close()

	bus.Emit(Event{Name: "change"})
	if calls != 0 {
		t.Errorf("expected 0 calls after close, got %d", calls)
	}
	if bus.Len("change") != 0 {
		t.Errorf("expected 0 listeners after close, got %d", bus.Len("change"))
	}
}

func TestOnNilTargetIsInert(t *testing.T) {
	sub := On(nil, "change", func(Event) {
		t.Error("handler invoked on nil target")
	})

	// Every method must be safe.
	sub.Swap(func(Event) {})
	sub.Close()
}

func TestRebindAfterNilTarget(t *testing.T) {
	bus := NewBus()
	var calls int

	sub := On(nil, "change", func(Event) { calls++ })
	sub.Rebind(bus, "change")
	defer sub.Close()

	bus.Emit(Event{Name: "change"})
	if calls != 1 {
		t.Errorf("expected 1 call after rebinding to live target, got %d", calls)
	}
}

func TestAddListenerDeduplicates(t *testing.T) {
	bus := NewBus()
	sub := On(bus, "change", func(Event) {})
	defer sub.Close()

	bus.AddListener("change", sub.listener)
	if bus.Len("change") != 1 {
		t.Errorf("expected dedup to 1 listener, got %d", bus.Len("change"))
	}
}

func TestEmitConcurrentWithSubscribe(t *testing.T) {
	bus := NewBus()
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			bus.Emit(Event{Name: "change"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s := On(bus, "change", func(Event) {})
			s.Close()
		}
	}()
	wg.Wait()
}

func TestHandlerMaySubscribeDuringEmit(t *testing.T) {
	bus := NewBus()
	var nested bool

	sub := On(bus, "change", func(Event) {
		s := On(bus, "change", func(Event) { nested = true })
		defer s.Close()
	})
	defer sub.Close()

	// Must not deadlock.
	bus.Emit(Event{Name: "change"})
	_ = nested
}
