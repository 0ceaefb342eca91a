package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks websocket subscribers per product so image-processing updates
// can be pushed to clients watching that product's page.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[*websocket.Conn]bool)}
}

// Subscribe upgrades the request and keeps the connection registered for
// productID until the client disconnects. Blocks until the connection closes.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, productID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	h.add(productID, conn)
	defer h.remove(productID, conn)

	// Drain reads so close frames and pings are handled; subscribers never
	// send application messages.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

func (h *Hub) add(productID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[productID] == nil {
		h.subscribers[productID] = make(map[*websocket.Conn]bool)
	}
	h.subscribers[productID][conn] = true
}

func (h *Hub) remove(productID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers[productID], conn)
	if len(h.subscribers[productID]) == 0 {
		delete(h.subscribers, productID)
	}
	conn.Close()
}

// NotifyProduct pushes a JSON payload to every subscriber of productID.
// Connections that fail to write are dropped.
func (h *Hub) NotifyProduct(productID string, payload any) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subscribers[productID]))
	for conn := range h.subscribers[productID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			zlog.Debug().Err(err).Str("productId", productID).Msg("dropping websocket subscriber")
			h.remove(productID, conn)
		}
	}
}
