package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quickchat/internal/middleware"
	"github.com/quickchat/internal/service"
)

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// writeServiceError maps service sentinels to HTTP statuses. Unknown errors
// stay opaque 500s.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

type createChatRequest struct {
	UserID string `json:"userId"`
}

// CreateChat finds or creates the chat with another user.
// POST /api/chats
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	chat, err := h.svc.CreateChat(r.Context(), middleware.GetUserID(r.Context()), req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// ListChats returns the caller's chat list with unseen counts.
// GET /api/chats
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.svc.ListChats(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// GetMessages opens a chat: returns its history and marks incoming messages
// seen.
// GET /api/chats/{chatID}/messages
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.OpenChat(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "chatID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SendMessage posts a message into a chat.
// POST /api/chats/{chatID}/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req service.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	m, err := h.svc.SendMessage(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "chatID"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
