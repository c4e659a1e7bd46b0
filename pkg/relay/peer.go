package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/custodesk-dev/custodesk/pkg/events"
	"github.com/custodesk-dev/custodesk/pkg/storage"
)

// Peer is one process's connection to a relay hub. It forwards local
// change events from its bus to the hub and emits frames received from the
// hub back onto the bus as remote changes.
type Peer struct {
	conn   *websocket.Conn
	bus    *events.Bus
	logger *slog.Logger

	sub  *events.Subscription
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

// PeerOption configures a Peer.
type PeerOption func(*Peer)

// WithPeerLogger sets the peer's logger. Default: slog.Default().
func WithPeerLogger(logger *slog.Logger) PeerOption {
	return func(p *Peer) {
		p.logger = logger
	}
}

// Dial connects to a hub at url (ws:// or wss://) and bridges it to bus.
func Dial(ctx context.Context, url string, bus *events.Bus, opts ...PeerOption) (*Peer, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	p := &Peer{
		conn:   conn,
		bus:    bus,
		logger: slog.Default(),
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.sub = events.On(bus, storage.EventLocal, p.onLocalChange)

	go p.writeLoop()
	go p.readLoop()
	return p, nil
}

// onLocalChange forwards a local write to the hub. A payload that is not a
// storage.Change is forwarded as a keyless change (refresh everything).
func (p *Peer) onLocalChange(e events.Event) {
	change, _ := e.Data.(storage.Change)
	msg, err := json.Marshal(change)
	if err != nil {
		p.logger.Error("relay: encode change", "error", err)
		return
	}

	select {
	case p.send <- msg:
	default:
		p.logger.Warn("relay: outbound queue full, dropping frame")
	}
}

func (p *Peer) writeLoop() {
	for {
		select {
		case msg := <-p.send:
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				p.Close()
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *Peer) readLoop() {
	defer p.Close()

	for {
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				p.logger.Error("relay: read error", "error", err)
			}
			return
		}

		var change storage.Change
		if err := json.Unmarshal(msg, &change); err != nil {
			p.logger.Warn("relay: invalid change frame", "error", err)
			continue
		}

		p.bus.Emit(events.Event{Name: storage.EventRemote, Data: change})
	}
}

// Close disconnects from the hub and stops forwarding in both directions.
// It is idempotent.
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		p.sub.Close()
		close(p.done)
		p.conn.Close()
	})
	return nil
}
