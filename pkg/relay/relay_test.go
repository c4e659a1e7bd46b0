package relay

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/custodesk-dev/custodesk/pkg/events"
	"github.com/custodesk-dev/custodesk/pkg/storage"
)

// changeRecorder collects remote change events from a bus.
type changeRecorder struct {
	mu      sync.Mutex
	changes []storage.Change
}

func recordRemote(bus *events.Bus) *changeRecorder {
	rec := &changeRecorder{}
	events.On(bus, storage.EventRemote, func(e events.Event) {
		change, _ := e.Data.(storage.Change)
		rec.mu.Lock()
		rec.changes = append(rec.changes, change)
		rec.mu.Unlock()
	})
	return rec
}

func (r *changeRecorder) snapshot() []storage.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]storage.Change, len(r.changes))
	copy(out, r.changes)
	return out
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { hub.Close() })
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestLocalChangePropagatesToPeer(t *testing.T) {
	hub, url := startHub(t)

	busA := events.NewBus()
	busB := events.NewBus()
	rec := recordRemote(busB)

	peerA, err := Dial(context.Background(), url, busA)
	if err != nil {
		t.Fatal(err)
	}
	defer peerA.Close()

	peerB, err := Dial(context.Background(), url, busB)
	if err != nil {
		t.Fatal(err)
	}
	defer peerB.Close()

	waitFor(t, func() bool { return hub.PeerCount() == 2 })

	busA.Emit(events.Event{Name: storage.EventLocal, Data: storage.Change{Key: "theme"}})

	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	if got := rec.snapshot()[0].Key; got != "theme" {
		t.Errorf("expected key theme, got %q", got)
	}
}

func TestOriginDoesNotEchoBack(t *testing.T) {
	hub, url := startHub(t)

	busA := events.NewBus()
	recA := recordRemote(busA)
	busB := events.NewBus()
	recB := recordRemote(busB)

	peerA, err := Dial(context.Background(), url, busA)
	if err != nil {
		t.Fatal(err)
	}
	defer peerA.Close()
	peerB, err := Dial(context.Background(), url, busB)
	if err != nil {
		t.Fatal(err)
	}
	defer peerB.Close()

	waitFor(t, func() bool { return hub.PeerCount() == 2 })

	busA.Emit(events.Event{Name: storage.EventLocal, Data: storage.Change{Key: "count"}})

	waitFor(t, func() bool { return len(recB.snapshot()) == 1 })
	// The originating bus never sees its own change as remote.
	if got := len(recA.snapshot()); got != 0 {
		t.Errorf("expected no echo on origin, got %d changes", got)
	}
}

func TestHubBroadcastReachesAllPeers(t *testing.T) {
	hub, url := startHub(t)

	busA := events.NewBus()
	recA := recordRemote(busA)
	busB := events.NewBus()
	recB := recordRemote(busB)

	peerA, err := Dial(context.Background(), url, busA)
	if err != nil {
		t.Fatal(err)
	}
	defer peerA.Close()
	peerB, err := Dial(context.Background(), url, busB)
	if err != nil {
		t.Fatal(err)
	}
	defer peerB.Close()

	waitFor(t, func() bool { return hub.PeerCount() == 2 })

	hub.Broadcast(storage.Change{Key: "prefs"})

	waitFor(t, func() bool {
		return len(recA.snapshot()) == 1 && len(recB.snapshot()) == 1
	})
	if got := recA.snapshot()[0].Key; got != "prefs" {
		t.Errorf("expected key prefs, got %q", got)
	}
}

func TestPeerCloseUnregisters(t *testing.T) {
	hub, url := startHub(t)

	bus := events.NewBus()
	peer, err := Dial(context.Background(), url, bus)
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return hub.PeerCount() == 1 })

	peer.Close()
	peer.Close() // idempotent

	waitFor(t, func() bool { return hub.PeerCount() == 0 })
}

func TestClosedHubRejectsPeers(t *testing.T) {
	hub, url := startHub(t)
	hub.Close()

	bus := events.NewBus()
	peer, err := Dial(context.Background(), url, bus)
	if err != nil {
		// The upgrade may fail outright once the hub is closed.
		return
	}
	defer peer.Close()

	waitFor(t, func() bool { return hub.PeerCount() == 0 })
}

func TestBindingsConvergeAcrossProcesses(t *testing.T) {
	// Two buses, each with its own peer, are the relay analog of two
	// processes sharing a store.
	hub, url := startHub(t)

	busA := events.NewBus()
	busB := events.NewBus()
	recB := recordRemote(busB)

	peerA, err := Dial(context.Background(), url, busA)
	if err != nil {
		t.Fatal(err)
	}
	defer peerA.Close()
	peerB, err := Dial(context.Background(), url, busB)
	if err != nil {
		t.Fatal(err)
	}
	defer peerB.Close()

	waitFor(t, func() bool { return hub.PeerCount() == 2 })

	for _, key := range []string{"theme", "count", "prefs"} {
		busA.Emit(events.Event{Name: storage.EventLocal, Data: storage.Change{Key: key}})
	}

	waitFor(t, func() bool { return len(recB.snapshot()) == 3 })
	got := recB.snapshot()
	want := []string{"theme", "count", "prefs"}
	for i, key := range want {
		if got[i].Key != key {
			t.Errorf("change %d: expected key %q, got %q", i, key, got[i].Key)
		}
	}
}
