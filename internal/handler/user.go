package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quickchat/internal/middleware"
	"github.com/quickchat/internal/repository"
	"github.com/quickchat/internal/service"
)

type UserHandler struct {
	auth  *service.OTPAuthService
	users *repository.UserRepository
}

func NewUserHandler(auth *service.OTPAuthService, users *repository.UserRepository) *UserHandler {
	return &UserHandler{auth: auth, users: users}
}

type requestCodeRequest struct {
	Email string `json:"email"`
}

// RequestCode emails a one-time sign-in code.
// POST /api/auth/request-code
func (h *UserHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	err := h.auth.RequestCode(r.Context(), req.Email)
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid email")
	case errors.Is(err, service.ErrRateLimitExceeded):
		writeError(w, http.StatusTooManyRequests, "too many requests")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
	}
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyCode exchanges a valid code for an access token.
// POST /api/auth/verify-code
func (h *UserHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	res, err := h.auth.VerifyCode(r.Context(), req.Email, req.Code)
	switch {
	case errors.Is(err, service.ErrInvalidOTP):
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// Me returns the caller's own profile.
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type updateMeRequest struct {
	Name string `json:"name"`
}

// UpdateMe renames the caller.
// PATCH /api/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	userID := middleware.GetUserID(r.Context())
	if err := h.users.UpdateName(r.Context(), userID, req.Name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// List returns the user directory for starting new chats.
// GET /api/users?limit=N
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	users, err := h.users.ListAll(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// GetPublic resolves a public profile for other services.
// GET /internal/users/{userID}
func (h *UserHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "userID"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, u.ToPublic())
}
