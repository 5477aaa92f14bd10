package livereload

import (
	"context"
	"log/slog"
	"sync"
)

// ClientGauge tracks the number of connected clients.
type ClientGauge interface {
	Set(float64)
}

// Message is the JSON frame sent to browsers.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Change describes a modified file, relative to the asset root.
type Change struct {
	Path string `json:"path"`
}

// Hub fans file change notifications out to connected clients.
type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	gauge  ClientGauge
	logger *slog.Logger
}

func NewHub(logger *slog.Logger, gauge ClientGauge) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		gauge:      gauge,
		logger:     logger,
	}
}

// Run owns the client set until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.updateGauge()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.updateGauge()
			h.logger.Debug("live-reload client registered", "total_clients", h.ClientCount())

		case client := <-h.unregister:
			h.remove(client)
			h.logger.Debug("live-reload client unregistered", "total_clients", h.ClientCount())

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// slow client
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn("live-reload client too slow, disconnected")
				}
			}
			h.mu.Unlock()
			h.updateGauge()
		}
	}
}

// Register adds a client. It is a no-op once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// NotifyChange queues a reload message for every client.
func (h *Hub) NotifyChange(path string) {
	select {
	case h.broadcast <- Message{Type: "reload", Data: Change{Path: path}}:
	default:
		h.logger.Warn("live-reload broadcast channel full, dropping change", "path", path)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	h.updateGauge()
}

func (h *Hub) updateGauge() {
	if h.gauge != nil {
		h.gauge.Set(float64(h.ClientCount()))
	}
}
