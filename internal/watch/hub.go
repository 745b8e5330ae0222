// Package watch pushes a live marketplace page to websocket clients,
// refreshing it on a fixed interval.
package watch

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks the open watch connections.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]string
}

type Stats struct {
	Watchers int            `json:"watchers"`
	ByAuthor map[string]int `json:"by_author"`
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]string)}
}

func (h *Hub) add(ws *websocket.Conn, author string) {
	h.mu.Lock()
	h.clients[ws] = author
	h.mu.Unlock()
}

// retarget records that ws now watches author.
func (h *Hub) retarget(ws *websocket.Conn, author string) {
	h.mu.Lock()
	if _, ok := h.clients[ws]; ok {
		h.clients[ws] = author
	}
	h.mu.Unlock()
}

func (h *Hub) remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Stats{Watchers: len(h.clients), ByAuthor: make(map[string]int)}
	for _, a := range h.clients {
		s.ByAuthor[a]++
	}
	return s
}
