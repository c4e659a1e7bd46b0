// Package relay bridges storage change notifications across processes.
//
// A Hub is an http.Handler that accepts WebSocket peers and rebroadcasts
// every change frame it receives to all other peers. A Peer connects a
// process to a hub: local changes (storage.EventLocal on its bus) are
// forwarded to the hub, and frames arriving from the hub are emitted on the
// bus as storage.EventRemote. Together with the in-process bus this gives
// bindings on the same key eventual consistency across processes.
//
// Frames are JSON-encoded storage.Change values carrying only the key.
package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/custodesk-dev/custodesk/pkg/storage"
)

// sendBuffer is the per-peer outbound queue size. Frames are dropped with a
// warning when a peer cannot keep up; consumers re-read on the next frame,
// so a dropped notification delays convergence rather than breaking it.
const sendBuffer = 32

// Hub relays change frames between connected peers.
type Hub struct {
	logger      *slog.Logger
	readTimeout time.Duration
	upgrader    websocket.Upgrader

	mu     sync.Mutex
	conns  map[*hubConn]struct{}
	closed bool
}

type hubConn struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the hub's logger. Default: slog.Default().
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithReadTimeout sets the per-read deadline for peer connections.
// Zero (the default) means no deadline.
func WithReadTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		h.readTimeout = d
	}
}

// NewHub creates a relay hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		logger: slog.Default(),
		conns:  make(map[*hubConn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request to a WebSocket peer connection and blocks
// reading frames from it until the peer disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("relay: upgrade failed", "error", err)
		return
	}

	hc := &hubConn{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.conns[hc] = struct{}{}
	h.mu.Unlock()

	go hc.writeLoop()
	h.readLoop(hc)
}

// readLoop reads frames from one peer and rebroadcasts them to the others.
func (h *Hub) readLoop(hc *hubConn) {
	defer h.drop(hc)

	for {
		if h.readTimeout > 0 {
			hc.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		}

		_, msg, err := hc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Error("relay: read error", "error", err)
			}
			return
		}

		var change storage.Change
		if err := json.Unmarshal(msg, &change); err != nil {
			h.logger.Warn("relay: invalid change frame", "error", err)
			continue
		}

		h.broadcast(msg, hc)
	}
}

// broadcast queues a frame to every peer except origin.
func (h *Hub) broadcast(msg []byte, origin *hubConn) {
	h.mu.Lock()
	conns := make([]*hubConn, 0, len(h.conns))
	for hc := range h.conns {
		if hc != origin {
			conns = append(conns, hc)
		}
	}
	h.mu.Unlock()

	for _, hc := range conns {
		select {
		case hc.send <- msg:
		default:
			h.logger.Warn("relay: peer send queue full, dropping frame")
		}
	}
}

// Broadcast sends a server-originated change to every connected peer.
func (h *Hub) Broadcast(change storage.Change) {
	msg, err := json.Marshal(change)
	if err != nil {
		h.logger.Error("relay: encode change", "error", err)
		return
	}
	h.broadcast(msg, nil)
}

// PeerCount reports the number of connected peers.
// This is for monitoring/testing purposes.
func (h *Hub) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects all peers and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	conns := make([]*hubConn, 0, len(h.conns))
	for hc := range h.conns {
		conns = append(conns, hc)
	}
	h.conns = nil
	h.mu.Unlock()

	for _, hc := range conns {
		close(hc.done)
		hc.conn.Close()
	}
	return nil
}

// drop unregisters and closes one peer connection.
func (h *Hub) drop(hc *hubConn) {
	h.mu.Lock()
	if h.conns != nil {
		if _, ok := h.conns[hc]; ok {
			delete(h.conns, hc)
			close(hc.done)
		}
	}
	h.mu.Unlock()
	hc.conn.Close()
}

func (hc *hubConn) writeLoop() {
	for {
		select {
		case msg := <-hc.send:
			if err := hc.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-hc.done:
			return
		}
	}
}
