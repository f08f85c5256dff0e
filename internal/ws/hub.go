package ws

import (
	"log/slog"
	"sync"

	"blockhunt/internal/constants"
)

const (
	// maxDroppedMessagesBeforeDisconnect is the threshold for disconnecting slow clients
	maxDroppedMessagesBeforeDisconnect = 100
)

// userMessage targets every open connection of one user. A user may hold
// several connections (editor tab plus scanner tab); all of them get the
// event.
type userMessage struct {
	userID  string
	message *WSMessage
}

type Hub struct {
	clients     map[*Client]bool
	userClients map[string]map[*Client]bool
	broadcast   chan *WSMessage
	direct      chan *userMessage
	register    chan *Client
	unregister  chan *Client
	shutdown    chan struct{}
	mu          sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		broadcast:   make(chan *WSMessage, constants.WSBroadcastBufferSize),
		direct:      make(chan *userMessage, constants.WSBroadcastBufferSize),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		shutdown:    make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.shutdown:
			h.mu.Lock()
			for client := range h.clients {
				client.CloseSend()
				delete(h.clients, client)
			}
			h.userClients = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			slog.Info("shutdown complete", "component", "hub")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			conns, ok := h.userClients[client.userID]
			if !ok {
				conns = make(map[*Client]bool)
				h.userClients[client.userID] = conns
			}
			conns[client] = true
			h.mu.Unlock()
			slog.Info("client registered", "component", "hub", "user_id", client.userID, "session_id", client.sessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if conns, ok := h.userClients[client.userID]; ok {
					delete(conns, client)
					if len(conns) == 0 {
						delete(h.userClients, client.userID)
					}
				}
				client.CloseSend()
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				client.trySend(message)
			}
			h.mu.RUnlock()

		case dm := <-h.direct:
			h.mu.RLock()
			for client := range h.userClients[dm.userID] {
				client.trySend(dm.message)
			}
			h.mu.RUnlock()
		}
	}
}

// Register hands a new connection to the hub loop.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// BroadcastDispatch sends an event to every connected client.
func (h *Hub) BroadcastDispatch(eventType string, data any) {
	msg := &WSMessage{Op: OpDispatch, Type: eventType, Data: data}
	select {
	case h.broadcast <- msg:
	default:
		slog.Warn("broadcast buffer full, dropping event", "component", "hub", "event", eventType)
	}
}

// SendToUser sends an event to every connection of one user. Delivery is
// best-effort: feedback events carry no correctness weight.
func (h *Hub) SendToUser(userID, eventType string, data any) {
	msg := &userMessage{userID: userID, message: &WSMessage{Op: OpDispatch, Type: eventType, Data: data}}
	select {
	case h.direct <- msg:
	default:
		slog.Warn("direct buffer full, dropping event", "component", "hub", "event", eventType, "user_id", userID)
	}
}

func (h *Hub) Shutdown() {
	close(h.shutdown)
}
