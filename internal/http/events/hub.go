// Package events streams state-change signals to the browser page over a
// websocket.
//
// Hub implements services.Notifier: Render broadcasts {"type":"render"} for a
// component so the page re-reads its state endpoint, Notify broadcasts a
// transient {"type":"notice"}. Broadcasting never blocks; a client whose
// buffer is full misses the event and catches up on its next state read.
package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-docchat-client/internal/domain"
	"github.com/tbourn/go-docchat-client/internal/services"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxInbound = 512
)

// Event types.
const (
	TypeConnected = "connected"
	TypeRender    = "render"
	TypeNotice    = "notice"
)

// Event is one message on the stream.
type Event struct {
	Type      string             `json:"type"`
	Component services.Component `json:"component,omitempty"`
	Version   uint64             `json:"version,omitempty"`
	Notice    *domain.Notice     `json:"notice,omitempty"`
}

// VersionFunc reports the current state version of a component.
type VersionFunc func(c services.Component) (uint64, bool)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to every connected page.
type Hub struct {
	// Versions, when set, stamps render events with the component version.
	Versions VersionFunc

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub builds a hub. allowedOrigins empty accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Render implements services.Notifier.
func (h *Hub) Render(c services.Component) {
	ev := Event{Type: TypeRender, Component: c}
	if h.Versions != nil {
		if v, ok := h.Versions(c); ok {
			ev.Version = v
		}
	}
	h.broadcast(ev)
}

// Notify implements services.Notifier.
func (h *Hub) Notify(n domain.Notice) {
	h.broadcast(Event{Type: TypeNotice, Notice: &n})
}

// Clients returns the number of connected pages.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("encode event")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
		}
	}
}

// ServeWS upgrades the request and streams events until the page disconnects.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(cl) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}
	hello, _ := json.Marshal(Event{Type: TypeConnected})
	select {
	case cl.send <- hello:
	default:
	}

	go h.writePump(cl)
	h.readPump(cl)
}

func (h *Hub) register(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	return true
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
}

// readPump discards inbound messages and keeps the deadline alive on pong.
func (h *Hub) readPump(cl *client) {
	defer h.unregister(cl)
	cl.conn.SetReadLimit(maxInbound)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every page and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
}
