package ws

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"blockhunt/internal/constants"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 15 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = 10 * time.Second

	// Maximum message size allowed from peer. The feed is server-push only;
	// clients send nothing but control frames.
	maxMessageSize = 1024
)

// Client represents a single WebSocket connection belonging to an
// authenticated user.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan *WSMessage
	userID        string
	sessionID     string
	connCloseOnce sync.Once
	sendCloseOnce sync.Once

	// droppedMessages tracks how many events were dropped due to a full buffer
	droppedMessages int64
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan *WSMessage, constants.WSClientSendBufferSize),
		userID:    userID,
		sessionID: uuid.NewString(),
	}
}

// Close tears down the connection, ensuring it only happens once.
func (c *Client) Close() {
	c.connCloseOnce.Do(func() { c.conn.Close() })
}

// CloseSend closes the outbound channel so WritePump drains and exits. Only
// the hub calls this.
func (c *Client) CloseSend() {
	c.sendCloseOnce.Do(func() { close(c.send) })
}

// SendHello delivers the connection handshake with the session identifier.
func (c *Client) SendHello() {
	c.trySend(&WSMessage{Op: OpHello, Data: HelloPayload{SessionID: c.sessionID}})
}

// trySend queues a message without blocking the hub. Slow consumers drop
// events; persistently slow ones get disconnected.
func (c *Client) trySend(msg *WSMessage) {
	select {
	case c.send <- msg:
	default:
		dropped := atomic.AddInt64(&c.droppedMessages, 1)
		if dropped >= maxDroppedMessagesBeforeDisconnect {
			slog.Warn("disconnecting slow client", "component", "ws", "user_id", c.userID, "session_id", c.sessionID, "dropped", dropped)
			c.Close()
		}
	}
}

// ReadPump consumes the connection until the peer goes away. The feed has no
// client commands; reads exist to process control frames and detect closure.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "component", "ws", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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
