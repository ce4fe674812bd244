package hub

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"netviz/internal/metrics"
)

// Client is a registered session's outbound queue
type Client struct {
	id   string
	send chan []byte
}

// NewClient creates a client whose queue holds up to buffer frames
func NewClient(id string, buffer int) *Client {
	return &Client{
		id:   id,
		send: make(chan []byte, buffer),
	}
}

// ID returns the session ID
func (c *Client) ID() string {
	return c.id
}

// Send returns the client's queue. It is closed when the hub drops the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

type message struct {
	frame   []byte
	exclude string
}

// Hub manages WebSocket session queues and fans frames out to them
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	log        logrus.FieldLogger
	metrics    *metrics.Metrics
}

// New creates a new Hub
func New(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		log:        log.WithField("component", "hub"),
	}
}

// WithMetrics records broadcast metrics on m
func (h *Hub) WithMetrics(m *metrics.Metrics) *Hub {
	h.metrics = m
	return h
}

// Run starts the hub's event loop. When ctx is done every client queue is
// closed and further Register calls fail.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.WithFields(logrus.Fields{"session": client.id, "total": total}).Debug("Client registered")

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.fanOut(msg)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// fanOut queues the frame for every client except the excluded one. A client
// whose queue is full is dropped; it resyncs from a fresh snapshot when it
// reconnects.
func (h *Hub) fanOut(msg message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for client := range h.clients {
		if client.id == msg.exclude {
			continue
		}
		select {
		case client.send <- msg.frame:
			sent++
		default:
			delete(h.clients, client)
			close(client.send)
			h.metrics.ClientDropped()
			h.log.WithField("session", client.id).Warn("Client is slow, disconnecting")
		}
	}
	h.metrics.FramesBroadcast(sent)
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.log.WithFields(logrus.Fields{"session": client.id, "total": total}).Debug("Client unregistered")
	}
}

// Register adds the client. Once Register returns, every later Broadcast
// reaches it. It reports false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes the client and closes its queue
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a frame for every client except the session exclude.
// Frames are delivered in the order Broadcast is called.
func (h *Hub) Broadcast(frame []byte, exclude string) {
	select {
	case h.broadcast <- message{frame: frame, exclude: exclude}:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
