package transport

import (
	"sync"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/pkg/arenadto"
)

const sendBuffer = 64

// client is one registered socket's outbound queue.
type client struct {
	id   string
	send chan []byte
	once sync.Once
}

func (c *client) close() { c.once.Do(func() { close(c.send) }) }

// Hub routes engine notifications to live sockets. Delivery never blocks:
// a client whose queue is full is dropped and its socket closed.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	dropped uint64
}

func NewHub() *Hub { return &Hub{clients: make(map[string]*client)} }

func (h *Hub) register(id string) *client {
	c := &client{id: id, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// Notify implements session.Notifier.
func (h *Hub) Notify(connID string, n arenadto.Notification) {
	frame, err := n.Encode()
	if err != nil {
		obslog.L().Error("ws_encode_error", zap.String("type", n.Type), zap.Error(err))
		return
	}
	h.mu.RLock()
	c, ok := h.clients[connID]
	if ok {
		select {
		case c.send <- frame:
			h.mu.RUnlock()
			return
		default:
		}
	}
	h.mu.RUnlock()
	if !ok {
		return
	}
	obslog.L().Warn("ws_slow_client_dropped", zap.String("conn_id", connID), zap.String("type", n.Type))
	h.mu.Lock()
	h.dropped++
	h.mu.Unlock()
	h.unregister(connID)
}

// Len is the number of registered sockets.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped counts clients removed for falling behind.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}
