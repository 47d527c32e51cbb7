package handlers

import (
	"net/http"
	"strings"

	"roomfinder/internal/contracts"
	"roomfinder/internal/models"
	"roomfinder/internal/services"
)

type AuthHandler struct {
	Service   *services.AuthService
	Contracts *contracts.Validator
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, h.Contracts, contracts.Login, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Service.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := decodeJSON(r, h.Contracts, contracts.SignUp, &req); err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := h.Service.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	if err := h.Service.Logout(r.Context(), sess); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":       sess.User,
		"expires_at": sess.ExpiresAt,
	})
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
// Websocket clients that cannot set headers pass it as ?token=.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
