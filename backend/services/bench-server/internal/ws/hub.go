package ws

import (
	"sync"

	"cellbench/backend/services/bench-server/internal/metrics"
)

// Hub fans broadcast frames out to every attached dashboard. Delivery
// is best effort: slow clients lose frames instead of blocking the
// bench loop.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]*Conn)}
}

// Add registers a connection.
func (h *Hub) Add(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.ID()] = conn
	metrics.WSClients.Set(float64(len(h.conns)))
}

// Remove drops a connection by id.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
	metrics.WSClients.Set(float64(len(h.conns)))
}

// Count reports attached connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast enqueues payload on every connection. msgType labels the
// frame for metrics only.
func (h *Hub) Broadcast(msgType string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.conns) == 0 {
		return
	}
	for _, conn := range h.conns {
		conn.Send(payload)
	}
	metrics.WSMessages.WithLabelValues(msgType).Inc()
}

// CloseAll disconnects every attached client. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Close()
	}
}
