package handler

import (
	"time"

	"practice-management-api/internal/model"
)

type appointmentJSON struct {
	ID            string     `json:"id"`
	ClientID      string     `json:"clientId"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       time.Time  `json:"endTime"`
	Format        string     `json:"format"`
	Status        string     `json:"status"`
	Confirmed     bool       `json:"confirmed"`
	IsRecurring   bool       `json:"isRecurring"`
	RecurringType string     `json:"recurringType,omitempty"`
	RecurrentID   *string    `json:"recurrentId,omitempty"`
	HostJWT       string     `json:"hostJwt,omitempty"`
	ClientJWT     string     `json:"clientJwt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func toAppointmentJSON(a *model.Appointment) appointmentJSON {
	out := appointmentJSON{
		ID:            a.ID,
		ClientID:      a.ClientID,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Format:        string(a.Format),
		Status:        string(a.Status),
		Confirmed:     a.Confirmed,
		IsRecurring:   a.IsRecurring,
		RecurringType: string(a.RecurringType),
		HostJWT:       a.HostJWT,
		ClientJWT:     a.ClientJWT,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	if a.RecurrentID != nil {
		s := a.RecurrentID.String()
		out.RecurrentID = &s
	}
	return out
}

func toAppointmentsJSON(appts []model.Appointment) []appointmentJSON {
	out := make([]appointmentJSON, len(appts))
	for i := range appts {
		out[i] = toAppointmentJSON(&appts[i])
	}
	return out
}

type slotJSON struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func slotsJSON(slots []model.Slot) []slotJSON {
	out := make([]slotJSON, len(slots))
	for i, s := range slots {
		out[i] = slotJSON{Start: s.Start, End: s.End}
	}
	return out
}

type emailEntryJSON struct {
	ID            string     `json:"id"`
	AppointmentID string     `json:"appointmentId"`
	EmailType     string     `json:"emailType"`
	ScheduledFor  time.Time  `json:"scheduledFor"`
	Recipient     string     `json:"recipient"`
	Subject       string     `json:"subject"`
	Status        string     `json:"status"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
}

func toEmailEntriesJSON(entries []model.EmailScheduleEntry) []emailEntryJSON {
	out := make([]emailEntryJSON, len(entries))
	for i, e := range entries {
		out[i] = emailEntryJSON{
			ID:            e.ID,
			AppointmentID: e.AppointmentID,
			EmailType:     string(e.EmailType),
			ScheduledFor:  e.ScheduledFor,
			Recipient:     e.RecipientEmail,
			Subject:       e.Subject,
			Status:        string(e.Status),
			SentAt:        e.SentAt,
			ErrorMessage:  e.ErrorMessage,
		}
	}
	return out
}

type clientJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Approved    bool      `json:"approved"`
	AutoInvoice bool      `json:"autoInvoice"`
	Rate        int       `json:"rate"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toClientJSON(c *model.Client) clientJSON {
	return clientJSON{
		ID:          c.ID,
		Name:        c.Name,
		Email:       c.Email,
		Approved:    c.Approved,
		AutoInvoice: c.AutoInvoice,
		Rate:        c.Rate,
		CreatedAt:   c.CreatedAt,
	}
}
