package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/pinchpad/internal/log"
	"github.com/ayusman/pinchpad/internal/surface"
)

const (
	writeWait      = 5 * time.Second
	defaultSendBuf = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// statusMessage is the websocket envelope.
type statusMessage struct {
	Type    string         `json:"type"`
	Enabled bool           `json:"enabled"`
	Status  surface.Status `json:"status"`
	Active  []string       `json:"active"`
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// StatusHub fans surface status snapshots out to websocket clients. Each
// client has its own send queue; a client whose queue is full is dropped so
// the frame loop never waits on the network.
type StatusHub struct {
	mu      sync.Mutex
	clients map[*hubClient]struct{}
	latest  []byte
	sendBuf int
}

// NewStatusHub creates an empty hub.
func NewStatusHub() *StatusHub {
	return &StatusHub{
		clients: make(map[*hubClient]struct{}),
		sendBuf: defaultSendBuf,
	}
}

// Publish records st as the latest snapshot and queues it for every client.
func (h *StatusHub) Publish(st surface.Status, enabled bool) {
	msg, err := json.Marshal(statusMessage{
		Type:    "status",
		Enabled: enabled,
		Status:  st,
		Active:  st.ActiveLabels(),
	})
	if err != nil {
		log.Warn("ws: encode status", "err", err)
		return
	}

	var slow []*hubClient

	h.mu.Lock()
	h.latest = msg
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.remove(c, "slow_client")
	}
}

// Latest returns the most recently published message, or nil.
func (h *StatusHub) Latest() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Clients returns the number of connected clients.
func (h *StatusHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *StatusHub) Close() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c, "shutdown")
	}
}

// ServeHTTP upgrades the request and streams status messages until the
// client goes away.
func (h *StatusHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws: upgrade failed", "err", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, h.sendBuf)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.latest != nil {
		c.send <- h.latest
	}
	n := len(h.clients)
	h.mu.Unlock()
	log.Debug("ws: client connected", "remote_addr", r.RemoteAddr, "clients", n)

	go h.writePump(c)

	// Reads only detect the close; clients have nothing to say.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c, "closed")
}

func (h *StatusHub) writePump(c *hubClient) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c, "write_error")
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *StatusHub) remove(c *hubClient, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.conn.Close()
		log.Debug("ws: client disconnected", "reason", reason, "clients", n)
	}
}
