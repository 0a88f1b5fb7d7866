package httpapi

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/perpintel/engine/internal/state"
)

// Hub fans out assembled MarketStates to every connected /stream/state
// websocket client. It is the one optional real-time surface on top of
// the request/response API (§6.2); a nil Hub leaves streaming disabled
// and Analyze simply skips the broadcast.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub builds an empty Hub with permissive, local-only CORS
// (analysis surface, not a public API; §1 leaves CORS to an external
// middleware layer).
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Broadcast pushes ms to every connected client, dropping any
// connection that errors on write.
func (h *Hub) Broadcast(ms state.MarketState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteJSON(ms); err != nil {
			c.Close()
			delete(h.clients, c)
		}
	}
}

func (h *Hub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	c.Close()
}

// StreamState upgrades GET /stream/state to a websocket and holds the
// connection open until the client disconnects; every subsequent
// Analyze call broadcasts its MarketState to it.
func (h *Handlers) StreamState(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "streaming_disabled", "state streaming is not enabled")
		return
	}
	conn, err := h.Hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.Hub.add(conn)
	defer h.Hub.remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
