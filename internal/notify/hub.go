// Package notify pushes change notifications to a user's open websocket clients.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/log"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message is the JSON frame sent to clients.
type Message struct {
	Type      string    `json:"type"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

type notification struct {
	userID  int64
	payload []byte
}

// Hub tracks connected clients per user. Run must be started before clients connect.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*client]struct{}

	register   chan *client
	unregister chan *client
	notify     chan notification
	done       chan struct{}

	upgrader websocket.Upgrader
	logger   *log.Logger
}

func NewHub(allowedOrigins []string, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	h := &Hub{
		clients:    make(map[int64]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		notify:     make(chan notification, 64),
		done:       make(chan struct{}),
		logger:     logger.WithComponent(log.ComponentNotify),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Run processes registrations and notifications until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*client]struct{})
			}
			h.clients[c.userID][c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("WebSocket client connected", log.FieldUserID, c.userID, "clients", h.ClientCount())

		case c := <-h.unregister:
			h.remove(c)

		case n := <-h.notify:
			h.mu.RLock()
			var stale []*client
			for c := range h.clients[n.userID] {
				select {
				case c.send <- n.payload:
				default:
					stale = append(stale, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range stale {
				h.remove(c)
			}

		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[int64]map[*client]struct{})
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// ClientCount returns the number of connected clients across all users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// TransactionsChanged queues a notification for userID's clients. The call
// never blocks on slow clients; it gives up when ctx is done.
func (h *Hub) TransactionsChanged(ctx context.Context, userID int64) {
	payload, err := json.Marshal(Message{Type: "transactions_changed", UserID: userID, Timestamp: time.Now().UTC()})
	if err != nil {
		return
	}
	select {
	case h.notify <- notification{userID: userID, payload: payload}:
	case <-h.done:
	case <-ctx.Done():
	}
}

// ServeWS upgrades the request and serves the connection until the client
// goes away. userID must already be authenticated.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return errors.New("hub stopped")
	case <-r.Context().Done():
		conn.Close()
		return r.Context().Err()
	}

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// readPump discards client frames and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error", log.FieldUserID, c.userID, log.FieldError, err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
