package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"practice-management-api/internal/model"
)

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		AutoInvoice bool   `json:"autoInvoice"`
		Rate        int    `json:"rate"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == "" || req.Email == "" {
		h.writeErr(w, http.StatusBadRequest, "name and email required")
		return
	}

	c := &model.Client{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Email:       req.Email,
		AutoInvoice: req.AutoInvoice,
		Rate:        req.Rate,
	}
	if err := h.store.CreateClient(r.Context(), c); err != nil {
		h.domainErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toClientJSON(c))
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.store.ListClients(r.Context())
	if err != nil {
		h.domainErr(w, err)
		return
	}
	out := make([]clientJSON, len(clients))
	for i := range clients {
		out[i] = toClientJSON(&clients[i])
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"clients": out})
}

func (h *Handler) approveClient(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ApproveClient(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeErr(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
