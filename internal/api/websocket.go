package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"blockhunt/internal/auth"
	"blockhunt/internal/db"
	"blockhunt/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub        *ws.Hub
	jwtService *auth.JWTService
	userRepo   *db.UserRepository
}

func NewWebSocketHandler(hub *ws.Hub, jwtService *auth.JWTService, userRepo *db.UserRepository) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		jwtService: jwtService,
		userRepo:   userRepo,
	}
}

func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		unauthorized(w, "Missing token")
		return
	}

	claims, err := h.jwtService.ValidateAccessToken(token)
	if err != nil {
		unauthorized(w, "Invalid token")
		return
	}

	if _, err := h.userRepo.FindByID(claims.UserID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			unauthorized(w, "User not found")
			return
		}
		slog.Error("error finding user for websocket", "error", err)
		internalError(w)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID)
	h.hub.Register(client)
	client.SendHello()

	go client.WritePump()
	go client.ReadPump()
}
