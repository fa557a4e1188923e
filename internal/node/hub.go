package node

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"tweetstamp/internal/ledger"
	"tweetstamp/internal/observability"
)

// Hub fans emitted events out to connected websocket clients. Stalled
// clients get events dropped rather than slowing the apply loop down.
type Hub struct {
	metrics *observability.Metrics

	mu      sync.Mutex
	clients map[*feedClient]struct{}
	closed  bool
}

type feedClient struct {
	send chan ledger.EventNotification
}

// NewHub creates an empty hub.
func NewHub(metrics *observability.Metrics) *Hub {
	return &Hub{
		metrics: metrics,
		clients: make(map[*feedClient]struct{}),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dev node: any origin may subscribe.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades the request and streams events until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &feedClient{send: make(chan ledger.EventNotification, 256)}
	if !h.register(client) {
		conn.Close()
		return
	}

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

// Broadcast delivers a notification to every connected client without
// blocking.
func (h *Hub) Broadcast(notif ledger.EventNotification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- notif:
		default:
			if h.metrics != nil {
				h.metrics.WSEventsDropped.Inc()
			}
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) register(client *feedClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[client] = struct{}{}
	if h.metrics != nil {
		h.metrics.WSClients.Inc()
	}
	return true
}

func (h *Hub) unregister(client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	if h.metrics != nil {
		h.metrics.WSClients.Dec()
	}
}

// writePump serializes notifications onto the connection.
func (h *Hub) writePump(conn *websocket.Conn, client *feedClient) {
	defer conn.Close()

	for notif := range client.send {
		if err := conn.WriteJSON(notif); err != nil {
			return
		}
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards inbound messages and detects disconnects.
func (h *Hub) readPump(conn *websocket.Conn, client *feedClient) {
	defer h.unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
