package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"practice-management-api/internal/model"
)

type weeklyBlockJSON struct {
	ID        string `json:"id,omitempty"`
	Weekday   int    `json:"weekday"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	IsActive  bool   `json:"isActive"`
}

func (h *Handler) getAvailability(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.DateOnly, r.URL.Query().Get("from"))
	if err != nil {
		h.writeErr(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse(time.DateOnly, r.URL.Query().Get("to"))
	if err != nil {
		h.writeErr(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}

	days, err := h.resolver.ResolveRange(r.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		h.domainErr(w, err)
		return
	}

	type dayJSON struct {
		Date  string     `json:"date"`
		Slots []slotJSON `json:"slots"`
	}
	out := make([]dayJSON, len(days))
	for i, d := range days {
		out[i] = dayJSON{Date: d.Date.Format(time.DateOnly), Slots: slotsJSON(d.Slots)}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"days": out})
}

func (h *Handler) getWeeklyTemplate(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.store.GetWeeklyTemplate(r.Context())
	if err != nil {
		h.domainErr(w, err)
		return
	}
	out := make([]weeklyBlockJSON, len(blocks))
	for i, b := range blocks {
		out[i] = weeklyBlockJSON{
			ID:        b.ID,
			Weekday:   int(b.Weekday),
			StartTime: b.StartTime.String(),
			EndTime:   b.EndTime.String(),
			IsActive:  b.IsActive,
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"blocks": out})
}

func (h *Handler) replaceWeeklyTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blocks []weeklyBlockJSON `json:"blocks"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, http.StatusBadRequest, "malformed request body")
		return
	}

	blocks := make([]model.WeeklyAvailabilityBlock, 0, len(req.Blocks))
	for _, b := range req.Blocks {
		wd := model.BusinessWeekday(b.Weekday)
		if !wd.Valid() {
			h.writeErr(w, http.StatusBadRequest, "weekday must be 0 (Monday) through 6 (Sunday)")
			return
		}
		start, err := model.ParseMinuteOfDay(b.StartTime)
		if err != nil {
			h.writeErr(w, http.StatusBadRequest, "bad startTime")
			return
		}
		end, err := model.ParseMinuteOfDay(b.EndTime)
		if err != nil {
			h.writeErr(w, http.StatusBadRequest, "bad endTime")
			return
		}
		if end <= start {
			h.writeErr(w, http.StatusBadRequest, "endTime must be after startTime")
			return
		}
		id := b.ID
		if id == "" {
			id = uuid.New().String()
		}
		blocks = append(blocks, model.WeeklyAvailabilityBlock{
			ID:        id,
			Weekday:   wd,
			StartTime: start,
			EndTime:   end,
			IsActive:  b.IsActive,
		})
	}

	if err := h.store.ReplaceWeeklyTemplate(r.Context(), blocks); err != nil {
		h.domainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) putDateOverride(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(time.DateOnly, chi.URLParam(r, "date"))
	if err != nil {
		h.writeErr(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var req struct {
		Closed bool `json:"closed"`
		Blocks []struct {
			StartTime string `json:"startTime"`
			EndTime   string `json:"endTime"`
		} `json:"blocks"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, http.StatusBadRequest, "malformed request body")
		return
	}

	var overrides []model.DateAvailabilityOverride
	if req.Closed {
		// nil times = closed sentinel
		overrides = append(overrides, model.DateAvailabilityOverride{
			ID:   uuid.New().String(),
			Date: date,
		})
	} else {
		for _, b := range req.Blocks {
			start, err := model.ParseMinuteOfDay(b.StartTime)
			if err != nil {
				h.writeErr(w, http.StatusBadRequest, "bad startTime")
				return
			}
			end, err := model.ParseMinuteOfDay(b.EndTime)
			if err != nil {
				h.writeErr(w, http.StatusBadRequest, "bad endTime")
				return
			}
			if end <= start {
				h.writeErr(w, http.StatusBadRequest, "endTime must be after startTime")
				return
			}
			overrides = append(overrides, model.DateAvailabilityOverride{
				ID:        uuid.New().String(),
				Date:      date,
				StartTime: &start,
				EndTime:   &end,
			})
		}
	}

	// an empty block list clears the day's overrides back to the template
	if err := h.store.UpsertOverride(r.Context(), date, overrides); err != nil {
		h.domainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
