package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"requestflow/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer; the token authenticates the socket.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TokenParser resolves an access token to the caller's ID and role
type TokenParser interface {
	ParseToken(token string) (uint, string, error)
}

// Client is one connected socket of an authenticated user
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// envelope is one routed message: UserID 0 goes to everyone.
type envelope struct {
	userID uint
	data   []byte
}

// message is the JSON pushed to clients
type message struct {
	Type      string       `json:"type"`
	Domain    model.Domain `json:"domain,omitempty"`
	RequestID uint         `json:"request_id,omitempty"`
	UserID    uint         `json:"user_id,omitempty"`
	Payload   interface{}  `json:"payload,omitempty"`
}

// Hub fans workflow events out to connected clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	connected  atomic.Int64
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Connected is the number of registered clients
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

// Publish queues an event for delivery. It never blocks the caller: when the
// queue is full the event is dropped and logged.
func (h *Hub) Publish(e model.Event) {
	data, err := json.Marshal(message{
		Type:      e.Type,
		Domain:    e.Domain,
		RequestID: e.RequestID,
		UserID:    e.UserID,
		Payload:   e.Payload,
	})
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("type", e.Type), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- envelope{userID: e.UserID, data: data}:
	default:
		h.logger.Warn("Event queue full, dropping event",
			zap.String("type", e.Type),
			zap.Uint("request_id", e.RequestID))
	}
}

// Run dispatches until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.connected.Store(0)
			return
		case client := <-h.register:
			h.clients[client] = true
			h.connected.Store(int64(len(h.clients)))
			h.logger.Debug("WebSocket client connected", zap.Uint("user_id", client.userID))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.connected.Store(int64(len(h.clients)))
				h.logger.Debug("WebSocket client disconnected", zap.Uint("user_id", client.userID))
			}
		case env := <-h.broadcast:
			for client := range h.clients {
				if env.userID != 0 && env.userID != client.userID {
					continue
				}
				select {
				case client.send <- env.data:
				default:
					close(client.send)
					delete(h.clients, client)
					h.connected.Store(int64(len(h.clients)))
					h.logger.Warn("Dropping slow WebSocket client", zap.Uint("user_id", client.userID))
				}
			}
		}
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for close and pong frames; clients do not send commands.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read error", zap.Uint("user_id", c.userID), zap.Error(err))
			}
			return
		}
	}
}

// ServeWs upgrades an authenticated request. Browsers cannot set headers on a
// socket handshake, so the token comes from the "token" query parameter.
func (h *Hub) ServeWs(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		userID, _, err := tokens.ParseToken(tokenString)
		if err != nil {
			h.logger.Info("WebSocket connection rejected", zap.Error(err))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}
		client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), userID: userID}
		h.register <- client

		go client.writePump()
		go client.readPump()
	}
}
