// Package gateway serves the live signal feed over WebSocket.
//
// The Hub is a record sink: every appended record is wrapped in an envelope,
// kept in a replay buffer and fanned out to connected clients. New clients
// receive the buffered envelopes newer than the last sequence they saw.
package gateway

import (
	"context"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"signalmon/internal/model"
)

// DefaultReplaySize is the number of envelopes replayed to new clients.
const DefaultReplaySize = 100

// Hub manages WebSocket clients and record fan-out.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64
	replay  *ReplayBuffer

	Broadcaster *Broadcaster

	// OnClientCount is called with the new client count after connects and disconnects.
	OnClientCount func(n int)
}

// NewHub creates a Hub keeping replaySize envelopes for late joiners.
func NewHub(replaySize int) *Hub {
	if replaySize <= 0 {
		replaySize = DefaultReplaySize
	}
	h := &Hub{
		clients: make(map[*Client]bool),
		replay:  NewReplayBuffer(replaySize),
	}
	h.Broadcaster = NewBroadcaster(h)
	return h
}

func (h *Hub) Name() string { return "ws" }

// Append broadcasts rec on its pub/sub channel. It never blocks on slow clients.
func (h *Hub) Append(_ context.Context, rec model.SignalRecord) error {
	h.Broadcaster.Broadcast(rec.PubSubChannel(), rec.JSON())
	return nil
}

// HandleWSRequest registers an upgraded connection. Envelopes with seq > lastSeq
// still in the replay buffer are queued before any live envelope.
func (h *Hub) HandleWSRequest(conn *websocket.Conn, lastSeq int64) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		hub:  h,
	}

	h.mu.Lock()
	for _, e := range h.replay.Since(lastSeq) {
		select {
		case client.send <- e.Data:
		default:
		}
	}
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)
	h.notifyCount(count)

	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()
	h.notifyCount(count)
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Seq returns the sequence number of the last broadcast envelope.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.notifyCount(0)
	return nil
}

func (h *Hub) notifyCount(n int) {
	if h.OnClientCount != nil {
		h.OnClientCount(n)
	}
}
