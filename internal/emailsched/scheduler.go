// Package emailsched computes and tracks the reminder and invoice emails owed
// to each appointment. Entries move PENDING -> SENT | FAILED | CANCELLED; the
// dispatcher owns the SENT/FAILED transitions, this package owns the rest.
package emailsched

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"practice-management-api/internal/model"
	"practice-management-api/pkg/logging"
)

// QueueStore is the persistence surface for scheduled email entries.
type QueueStore interface {
	CreateEntries(ctx context.Context, entries []model.EmailScheduleEntry) error
	CancelPending(ctx context.Context, appointmentID string) (int64, error)
	CancelPendingMany(ctx context.Context, appointmentIDs []string) (int64, error)
}

// Scheduler plans and maintains the email queue for appointments.
type Scheduler struct {
	store  QueueStore
	logger *logging.Logger
	now    func() time.Time
}

func NewScheduler(store QueueStore, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Plan computes the entries owed to an appointment. Candidate times already in
// the past at planning time are silently omitted; an email is never scheduled
// into the past. Recipient, subject and times are computed once, here; a
// later rate or template change does not rewrite pending entries.
//
//   - REMINDER_24H at start-24h, only when includeReminders
//   - REMINDER_1H at start-1h, always
//   - INVOICE_DELIVERY at end+1h, only when the client auto-invoices
func (s *Scheduler) Plan(appt *model.Appointment, client *model.Client, includeReminders bool) []model.EmailScheduleEntry {
	now := s.now()
	var out []model.EmailScheduleEntry

	add := func(t model.EmailType, at time.Time, subject string) {
		if !at.After(now) {
			return
		}
		out = append(out, model.EmailScheduleEntry{
			ID:             uuid.New().String(),
			AppointmentID:  appt.ID,
			EmailType:      t,
			ScheduledFor:   at,
			RecipientEmail: client.Email,
			RecipientName:  client.Name,
			Subject:        subject,
			Status:         model.EmailPending,
		})
	}

	when := appt.StartTime.Format("Monday, January 2 at 15:04")
	if includeReminders {
		add(model.EmailReminder24h, appt.StartTime.Add(-24*time.Hour),
			fmt.Sprintf("Reminder: your session on %s", when))
	}
	add(model.EmailReminder1h, appt.StartTime.Add(-time.Hour),
		fmt.Sprintf("Your session starts at %s", appt.StartTime.Format("15:04")))
	if client.AutoInvoice {
		add(model.EmailInvoiceDelivery, appt.EndTime.Add(time.Hour),
			fmt.Sprintf("Invoice for your session on %s", appt.StartTime.Format("January 2, 2006")))
	}
	return out
}

// Schedule plans and persists entries for a standalone appointment.
func (s *Scheduler) Schedule(ctx context.Context, appt *model.Appointment, client *model.Client, includeReminders bool) ([]model.EmailScheduleEntry, error) {
	entries := s.Plan(appt, client, includeReminders)
	if len(entries) == 0 {
		return nil, nil
	}
	if err := s.store.CreateEntries(ctx, entries); err != nil {
		return nil, fmt.Errorf("emailsched: schedule: %w", err)
	}
	s.logger.Info("emails scheduled", "appointment_id", appt.ID, "count", len(entries))
	return entries, nil
}

// Cancel transitions every PENDING entry of the appointment to CANCELLED.
// Idempotent: a second call finds nothing pending and succeeds.
func (s *Scheduler) Cancel(ctx context.Context, appointmentID string) error {
	n, err := s.store.CancelPending(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("emailsched: cancel: %w", err)
	}
	if n > 0 {
		s.logger.Info("emails cancelled", "appointment_id", appointmentID, "count", n)
	}
	return nil
}

// CancelSeries is the bulk variant for series-wide cancellation or deletion.
func (s *Scheduler) CancelSeries(ctx context.Context, appointmentIDs []string) error {
	if len(appointmentIDs) == 0 {
		return nil
	}
	n, err := s.store.CancelPendingMany(ctx, appointmentIDs)
	if err != nil {
		return fmt.Errorf("emailsched: cancel series: %w", err)
	}
	s.logger.Info("series emails cancelled", "appointments", len(appointmentIDs), "entries", n)
	return nil
}

// PlanReschedule computes the replacement set after a time change. A
// reschedule always restores the full reminder set, even when the original
// creation suppressed the 24h reminder (instant meetings). Entries are
// recreated, never patched in place, so no PENDING row can carry stale times.
func (s *Scheduler) PlanReschedule(appt *model.Appointment, client *model.Client) []model.EmailScheduleEntry {
	return s.Plan(appt, client, true)
}
