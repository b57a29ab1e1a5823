package handlers

import (
	"net/http"
	"time"

	"github.com/meetgrid/server/internal/api/problem"
	"github.com/meetgrid/server/internal/auth"
	"github.com/meetgrid/server/internal/domain/users"
)

// AuthHandler serves account registration and session endpoints.
type AuthHandler struct {
	users *users.Service
	env   string
}

func NewAuthHandler(usersService *users.Service, env string) *AuthHandler {
	return &AuthHandler{users: usersService, env: env}
}

// Register handles POST /api/auth/register/.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input users.RegisterInput
	if err := decodeJSON(w, r, &input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation,
			"Malformed request body", err, h.env)
		return
	}

	user, err := h.users.Register(r.Context(), input)
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

// Login handles POST /api/auth/login/.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input users.LoginInput
	if err := decodeJSON(w, r, &input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation,
			"Malformed request body", err, h.env)
		return
	}

	user, token, err := h.users.Login(r.Context(), input)
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		User:      newUserResponse(user),
	})
}

// Logout handles POST /api/auth/logout/. The presented token is revoked;
// an unknown token still gets 204 so logout is idempotent.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}

	if err := h.users.Logout(r.Context(), token); err != nil {
		respondError(w, r, err, h.env)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
