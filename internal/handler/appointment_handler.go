package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"practice-management-api/internal/model"
	"practice-management-api/internal/schedule"
)

type createAppointmentRequest struct {
	ClientID         string     `json:"clientId"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          time.Time  `json:"endTime"`
	Format           string     `json:"format"`
	Confirmed        bool       `json:"confirmed"`
	IncludeReminders bool       `json:"includeReminders"`
	Recurring        *recurring `json:"recurring,omitempty"`
}

type recurring struct {
	Type  string     `json:"type"`
	Until *time.Time `json:"until,omitempty"`
	Count int        `json:"count,omitempty"`
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decode(r, &req); err != nil {
		h.writeErr(w, http.StatusBadRequest, "malformed request body")
		return
	}

	format, err := parseFormat(req.Format)
	if err != nil {
		h.writeErr(w, http.StatusBadRequest, "bad format")
		return
	}
	booking := schedule.BookingRequest{
		ClientID:         req.ClientID,
		Start:            req.StartTime,
		End:              req.EndTime,
		Format:           format,
		Confirmed:        req.Confirmed,
		IncludeReminders: req.IncludeReminders,
	}
	if req.Recurring != nil {
		spec := &schedule.RecurrenceSpec{Type: model.RecurringType(req.Recurring.Type)}
		if req.Recurring.Until != nil {
			spec.Span.Until = *req.Recurring.Until
		}
		spec.Span.Count = req.Recurring.Count
		booking.Recurring = spec
	}

	result, err := h.manager.Create(r.Context(), booking)
	if err != nil {
		h.domainErr(w, err)
		return
	}

	resp := map[string]any{"created": toAppointmentsJSON(result.Created)}
	if len(result.Skipped) > 0 {
		resp["skipped"] = slotsJSON(result.Skipped)
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	from := time.Now().AddDate(0, 0, -30)
	to := time.Now().AddDate(0, 2, 0)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.writeErr(w, http.StatusBadRequest, "bad from")
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.writeErr(w, http.StatusBadRequest, "bad to")
			return
		}
		to = t
	}

	appts, err := h.store.ListAppointments(r.Context(), from, to)
	if err != nil {
		h.domainErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"appointments": toAppointmentsJSON(appts)})
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.store.GetAppointment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, http.StatusNotFound, "not found")
		return
	}
	h.writeJSON(w, http.StatusOK, toAppointmentJSON(appt))
}

type updateAppointmentRequest struct {
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Format    *string    `json:"format,omitempty"`

	// series mode only
	DayOffset  int     `json:"dayOffset,omitempty"`
	StartClock *string `json:"startClock,omitempty"`
	EndClock   *string `json:"endClock,omitempty"`
}

func (h *Handler) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateAppointmentRequest
	if err := decode(r, &req); err != nil {
		h.writeErr(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if r.URL.Query().Get("mode") == "series" {
		h.updateSeries(w, r, id, req)
		return
	}

	patch := schedule.UpdatePatch{Start: req.StartTime, End: req.EndTime}
	if req.Format != nil {
		f, err := parseFormat(*req.Format)
		if err != nil {
			h.writeErr(w, http.StatusBadRequest, "bad format")
			return
		}
		patch.Format = &f
	}
	appt, err := h.manager.Update(r.Context(), id, patch)
	if err != nil {
		h.domainErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAppointmentJSON(appt))
}

func (h *Handler) updateSeries(w http.ResponseWriter, r *http.Request, id string, req updateAppointmentRequest) {
	seriesID, err := h.seriesIDFor(r, id)
	if err != nil {
		h.domainErr(w, err)
		return
	}

	patch := schedule.SeriesPatch{DayOffset: req.DayOffset}
	if req.StartClock != nil {
		m, err := model.ParseMinuteOfDay(*req.StartClock)
		if err != nil {
			h.writeErr(w, http.StatusBadRequest, "bad startClock")
			return
		}
		patch.StartClock = &m
	}
	if req.EndClock != nil {
		m, err := model.ParseMinuteOfDay(*req.EndClock)
		if err != nil {
			h.writeErr(w, http.StatusBadRequest, "bad endClock")
			return
		}
		patch.EndClock = &m
	}
	if req.Format != nil {
		f, err := parseFormat(*req.Format)
		if err != nil {
			h.writeErr(w, http.StatusBadRequest, "bad format")
			return
		}
		patch.Format = &f
	}

	appts, err := h.manager.UpdateSeries(r.Context(), seriesID, patch)
	if err != nil {
		h.domainErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"appointments": toAppointmentsJSON(appts)})
}

func (h *Handler) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if r.URL.Query().Get("mode") == "series" {
		seriesID, err := h.seriesIDFor(r, id)
		if err != nil {
			h.domainErr(w, err)
			return
		}
		if err := h.manager.DeleteSeries(r.Context(), seriesID); err != nil {
			h.domainErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.manager.Delete(r.Context(), id); err != nil {
		h.domainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Confirm(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.domainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.manager.SetStatus(r.Context(), chi.URLParam(r, "id"), model.AppointmentStatus(req.Status)); err != nil {
		h.domainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAppointmentEmails(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListEntriesByAppointment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.domainErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"emails": toEmailEntriesJSON(entries)})
}

// seriesIDFor resolves an appointment id to the series it belongs to.
func (h *Handler) seriesIDFor(r *http.Request, id string) (uuid.UUID, error) {
	appt, err := h.store.GetAppointment(r.Context(), id)
	if err != nil {
		return uuid.Nil, &schedule.NotFoundError{Kind: "appointment", ID: id}
	}
	if appt.RecurrentID == nil {
		return uuid.Nil, &schedule.ValidationError{Reason: "appointment is not part of a series"}
	}
	return *appt.RecurrentID, nil
}

// An omitted format means FACE_TO_FACE; anything else must match an enum
// value exactly.
func parseFormat(s string) (model.Format, error) {
	switch s {
	case "", string(model.FormatFaceToFace):
		return model.FormatFaceToFace, nil
	case string(model.FormatOnline):
		return model.FormatOnline, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}
