package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"practice-management-api/internal/auth"
	"practice-management-api/internal/middleware"
	"practice-management-api/internal/model"
)

const refreshCookie = "refresh_token"
const refreshTTL = 30 * 24 * time.Hour

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		h.writeErr(w, http.StatusBadRequest, "all fields required")
		return
	}
	if len(req.Password) < 8 {
		h.writeErr(w, http.StatusBadRequest, "password too short")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		// unique violation = dup email, but don't reveal that
		h.writeErr(w, http.StatusConflict, "registration failed")
		return
	}

	h.issueSession(w, r, u.ID, u.Name, http.StatusCreated)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeErr(w, http.StatusBadRequest, "email and password required")
		return
	}

	u, err := h.store.UserByEmail(r.Context(), req.Email)
	if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.writeErr(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.issueSession(w, r, u.ID, u.Name, http.StatusOK)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(refreshCookie)
	if err != nil || c.Value == "" {
		h.writeErr(w, http.StatusUnauthorized, "no refresh token")
		return
	}

	rt, err := h.store.GetRefreshTokenByHash(r.Context(), auth.HashRefreshToken(c.Value))
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		h.writeErr(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		h.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	newID := uuid.New().String()
	if err := h.store.RotateRefreshToken(r.Context(), rt.ID, newID, rt.UserID, hash, time.Now().Add(refreshTTL)); err != nil {
		h.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	tok, err := auth.MakeToken(rt.UserID, h.secret)
	if err != nil {
		h.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.setRefreshCookie(w, raw)
	h.writeJSON(w, http.StatusOK, map[string]string{"token": tok, "userId": rt.UserID})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeErr(w, http.StatusUnauthorized, "no session")
		return
	}
	if err := h.store.RevokeAllRefreshTokens(r.Context(), uid); err != nil {
		h.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request, userID, name string, status int) {
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		h.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	if _, err := h.store.CreateRefreshToken(r.Context(), userID, hash, time.Now().Add(refreshTTL)); err != nil {
		h.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	tok, err := auth.MakeToken(userID, h.secret)
	if err != nil {
		h.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.setRefreshCookie(w, raw)
	h.writeJSON(w, status, map[string]string{"token": tok, "userId": userID, "name": name})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, raw string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    raw,
		Path:     "/auth",
		Expires:  time.Now().Add(refreshTTL),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
