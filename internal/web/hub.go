package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 200 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans text messages out to connected websocket clients. A client
// whose write fails or times out is dropped.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool

	// gorilla connections allow one concurrent writer.
	writeMu sync.Mutex
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]bool)}
}

func (h *Hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	if h.conns[c] {
		delete(h.conns, c)
		c.Close()
	}
	h.mu.Unlock()
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	return clients
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast sends b to every client.
func (h *Hub) Broadcast(b []byte) {
	for _, c := range h.snapshot() {
		h.send(c, b)
	}
}

func (h *Hub) send(c *websocket.Conn, b []byte) {
	h.writeMu.Lock()
	_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := c.WriteMessage(websocket.TextMessage, b)
	h.writeMu.Unlock()
	if err != nil {
		h.remove(c)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	for _, c := range h.snapshot() {
		h.remove(c)
	}
}
