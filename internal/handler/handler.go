package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"practice-management-api/internal/middleware"
	"practice-management-api/internal/schedule"
	"practice-management-api/internal/store"
	"practice-management-api/pkg/logging"
)

// Handler exposes the scheduling core over HTTP.
type Handler struct {
	store    *store.Store
	manager  *schedule.Manager
	resolver *schedule.Resolver
	secret   string
	logger   *logging.Logger
}

func New(st *store.Store, mgr *schedule.Manager, res *schedule.Resolver, secret string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: st, manager: mgr, resolver: res, secret: secret, logger: logger}
}

// Routes mounts the API. Auth endpoints are rate limited; everything else
// requires a Bearer token.
func (h *Handler) Routes(rl *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rl))
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Post("/auth/refresh", h.refresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.secret))
		r.Post("/auth/logout", h.logout)

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", h.createAppointment)
			r.Get("/", h.listAppointments)
			r.Get("/{id}", h.getAppointment)
			r.Patch("/{id}", h.updateAppointment)
			r.Delete("/{id}", h.deleteAppointment)
			r.Post("/{id}/confirm", h.confirmAppointment)
			r.Put("/{id}/status", h.setAppointmentStatus)
			r.Get("/{id}/emails", h.listAppointmentEmails)
		})

		r.Route("/availability", func(r chi.Router) {
			r.Get("/", h.getAvailability)
			r.Get("/template", h.getWeeklyTemplate)
			r.Put("/template", h.replaceWeeklyTemplate)
			r.Put("/overrides/{date}", h.putDateOverride)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Post("/", h.createClient)
			r.Get("/", h.listClients)
			r.Post("/{id}/approve", h.approveClient)
		})
	})

	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			h.logger.Error("response encode failed", "error", err)
		}
	}
}

func (h *Handler) writeErr(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// domainErr maps scheduling errors onto HTTP statuses.
func (h *Handler) domainErr(w http.ResponseWriter, err error) {
	var (
		ve *schedule.ValidationError
		ce *schedule.ConflictError
		ue *schedule.UnavailableSlotError
		ne *schedule.NotFoundError
		pe *schedule.PartialSeriesFailure
	)
	switch {
	case errors.As(err, &ve):
		h.writeErr(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &ne):
		h.writeErr(w, http.StatusNotFound, ne.Error())
	case errors.As(err, &ce):
		h.writeErr(w, http.StatusConflict, ce.Error())
	case errors.As(err, &ue):
		h.writeErr(w, http.StatusUnprocessableEntity, ue.Error())
	case errors.As(err, &pe):
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"error":   pe.Error(),
			"skipped": slotsJSON(pe.Skipped),
		})
	default:
		h.logger.Error("request failed", "error", err)
		h.writeErr(w, http.StatusInternalServerError, "internal error")
	}
}
