package preview

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Message types.
const (
	TypeSet    = "set"
	TypeEvent  = "event"
	TypeRender = "render"
	TypeError  = "error"
)

// ClientMessage is sent by browsers.
type ClientMessage struct {
	Type  string `json:"type"`
	Path  string `json:"path,omitempty"`
	ID    int    `json:"id,omitempty"`
	Event string `json:"event,omitempty"`
	Value any    `json:"value,omitempty"`
}

// ServerMessage is pushed to browsers.
type ServerMessage struct {
	Type  string `json:"type"`
	HTML  string `json:"html,omitempty"`
	Error string `json:"error,omitempty"`
}

// hub tracks websocket clients. Writes to a connection are serialised by
// writeMu as gorilla/websocket allows one concurrent writer.
type hub struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	writeMu  sync.Mutex
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local preview
			},
		},
		logger: logger,
	}
}

// serve upgrades the request and feeds every client message to handle.
// A non-nil reply is written back to the sender only.
func (h *hub) serve(w http.ResponseWriter, r *http.Request, onConnect func(*websocket.Conn), handle func(ClientMessage) *ServerMessage) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.logger.Debug("client connected", "remote", r.RemoteAddr, "clients", h.count())

	if onConnect != nil {
		onConnect(conn)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.send(conn, ServerMessage{Type: TypeError, Error: "invalid message: " + err.Error()})
			continue
		}
		if reply := handle(msg); reply != nil {
			h.send(conn, *reply)
		}
	}

	h.remove(conn)
}

func (h *hub) send(conn *websocket.Conn, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	h.writeMu.Unlock()
	if err != nil {
		h.remove(conn)
	}
}

func (h *hub) broadcast(msg ServerMessage) {
	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.send(client, msg)
	}
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}
