package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sharkspread/internal/observability"
)

const hubWriteTimeout = 10 * time.Second

// Hub fans spread rows out to every connected WebSocket client. A
// client whose write fails is evicted; slow readers cannot stall the
// collector beyond the write timeout.
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[string]*websocket.Conn
	mu       sync.Mutex
	log      *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[string]*websocket.Conn),
		log:      log,
	}
}

// Handler upgrades an HTTP request and registers the connection.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		id := uuid.NewString()
		h.mu.Lock()
		h.clients[id] = conn
		observability.FeedClients.Set(float64(len(h.clients)))
		h.mu.Unlock()
		h.log.Info("feed client connected", zap.String("client_id", id))

		// Read loop drains control frames and detects disconnects.
		go func() {
			defer h.drop(id)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

// Broadcast sends a batch of rows to every client as one JSON array.
// An empty batch is skipped.
func (h *Hub) Broadcast(rows []Row) {
	if len(rows) == 0 {
		return
	}
	msg, err := json.Marshal(rows)
	if err != nil {
		h.log.Error("marshal feed rows", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Info("feed client evicted", zap.String("client_id", id), zap.Error(err))
			conn.Close()
			delete(h.clients, id)
		}
	}
	observability.FeedClients.Set(float64(len(h.clients)))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		delete(h.clients, id)
	}
	observability.FeedClients.Set(0)
}

func (h *Hub) drop(id string) {
	h.mu.Lock()
	conn, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	observability.FeedClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
	if ok {
		conn.Close()
		h.log.Info("feed client disconnected", zap.String("client_id", id))
	}
}
