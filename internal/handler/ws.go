package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/quickchat/internal/logger"
	"github.com/quickchat/internal/token"
	"github.com/quickchat/internal/ws"
)

type WSHandler struct {
	hub            *ws.Hub
	secret         []byte
	allowedOrigins string
}

// NewWSHandler creates the WebSocket endpoint. allowedOrigins follows the
// CORS setting (comma-separated list or "*").
func NewWSHandler(hub *ws.Hub, secret []byte, allowedOrigins string) *WSHandler {
	return &WSHandler{hub: hub, secret: secret, allowedOrigins: strings.TrimSpace(allowedOrigins)}
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	if h.allowedOrigins == "*" || h.allowedOrigins == "" {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	for _, o := range strings.Split(h.allowedOrigins, ",") {
		if strings.TrimSpace(o) == origin {
			return true
		}
	}
	return false
}

// principalID resolves the connection's identity. A valid token wins; the
// userId query parameter is rejected unless it matches a token, so identity
// is never client-asserted. Browser clients that connect before signing in
// send no token (or the literal "undefined") and get an unauthenticated,
// presence-only connection.
func (h *WSHandler) principalID(r *http.Request) string {
	raw := r.URL.Query().Get("token")
	if raw == "" || raw == "undefined" {
		return ""
	}
	userID, err := token.Verify(h.secret, raw)
	if err != nil {
		return ""
	}
	return userID
}

// ServeWS upgrades the connection and hands it to the hub. Unauthenticated
// connections are allowed: they receive broadcasts but never join the online
// set or send events.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	userID := h.principalID(r)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return h.checkOrigin(r) },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("ws upgrade: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := ws.NewClient(h.hub, conn, userID)
	client.Start(ctx, cancel)
	h.hub.Register(client)
}
