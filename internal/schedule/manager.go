package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"practice-management-api/internal/emailsched"
	"practice-management-api/internal/metrics"
	"practice-management-api/internal/model"
	"practice-management-api/pkg/logging"
)

// Store is the persistence surface the lifecycle manager mutates. Only the
// manager writes Appointment rows; the multi-statement methods run in one
// transaction so an appointment is never committed without its email entries.
type Store interface {
	GetClient(ctx context.Context, id string) (*model.Client, error)
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	FindBySeriesID(ctx context.Context, seriesID uuid.UUID) ([]model.Appointment, error)
	FindOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]model.Appointment, error)
	FindOverlappingExcludingSeries(ctx context.Context, start, end time.Time, seriesID uuid.UUID) ([]model.Appointment, error)

	CreateAppointmentWithEmails(ctx context.Context, appt *model.Appointment, entries []model.EmailScheduleEntry) error
	CreateSeriesWithEmails(ctx context.Context, appts []model.Appointment, entries []model.EmailScheduleEntry) error
	UpdateAppointment(ctx context.Context, appt *model.Appointment) error
	RescheduleAppointment(ctx context.Context, appt *model.Appointment, entries []model.EmailScheduleEntry) error
	RescheduleSeries(ctx context.Context, appts []model.Appointment, entries []model.EmailScheduleEntry, timeChanged bool) error
	DeleteAppointment(ctx context.Context, id string) error
	DeleteSeries(ctx context.Context, seriesID uuid.UUID) error
	UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) error
	SetConfirmed(ctx context.Context, id string) error
}

// Notifier delivers the immediate confirmation/cancellation email intent,
// distinct from the scheduled reminder queue.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, appt *model.Appointment, client *model.Client) error
	SendCancellation(ctx context.Context, appt *model.Appointment, client *model.Client) error
}

// VideoIssuer mints the opaque host/client token pair for ONLINE sessions.
type VideoIssuer interface {
	IssuePair(appointmentID, clientName, clientEmail string, start, end time.Time) (host, client string, err error)
}

// BookingRequest is a validated-at-the-edge booking intent.
type BookingRequest struct {
	ClientID         string
	Start            time.Time
	End              time.Time
	Format           model.Format
	Confirmed        bool
	IncludeReminders bool
	Recurring        *RecurrenceSpec
}

// RecurrenceSpec asks for a series instead of a single appointment.
type RecurrenceSpec struct {
	Type model.RecurringType
	Span Span
}

// CreateResult reports what a booking committed and what it skipped.
type CreateResult struct {
	Created []model.Appointment
	Skipped []model.Slot
}

// UpdatePatch is a partial edit of one appointment.
type UpdatePatch struct {
	Start  *time.Time
	End    *time.Time
	Format *model.Format
}

// SeriesPatch applies one field delta uniformly to every instance of a series.
type SeriesPatch struct {
	DayOffset  int
	StartClock *model.MinuteOfDay
	EndClock   *model.MinuteOfDay
	Format     *model.Format
}

func (p SeriesPatch) empty() bool {
	return p.DayOffset == 0 && p.StartClock == nil && p.EndClock == nil && p.Format == nil
}

func (p SeriesPatch) movesTime() bool {
	return p.DayOffset != 0 || p.StartClock != nil || p.EndClock != nil
}

// Manager orchestrates appointment create/update/delete, coordinating the
// availability resolver, conflict checker, recurrence expander and email
// scheduler.
type Manager struct {
	store    Store
	resolver *Resolver
	checker  *Checker
	expander *Expander
	emails   *emailsched.Scheduler
	notifier Notifier
	video    VideoIssuer
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// ManagerDeps wires a Manager. Notifier, VideoIssuer and Metrics are optional.
type ManagerDeps struct {
	Store    Store
	Resolver *Resolver
	Checker  *Checker
	Expander *Expander
	Emails   *emailsched.Scheduler
	Notifier Notifier
	Video    VideoIssuer
	Metrics  *metrics.SchedulingMetrics
	Logger   *logging.Logger
}

func NewManager(deps ManagerDeps) *Manager {
	if deps.Store == nil {
		panic("schedule: store required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &Manager{
		store:    deps.Store,
		resolver: deps.Resolver,
		checker:  deps.Checker,
		expander: deps.Expander,
		emails:   deps.Emails,
		notifier: deps.Notifier,
		video:    deps.Video,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// Create books a single appointment or expands a recurring request into a
// committed series. For a series, conflicting or out-of-hours instances are
// skipped and reported while the rest commit; a conflicting seed refuses the
// whole request.
func (m *Manager) Create(ctx context.Context, req BookingRequest) (*CreateResult, error) {
	if err := validateInterval(req.Start, req.End); err != nil {
		return nil, err
	}
	if req.Start.Before(m.now()) {
		return nil, &ValidationError{Reason: "cannot book in the past"}
	}
	if req.ClientID == "" {
		return nil, &ValidationError{Reason: "client required"}
	}
	client, err := m.store.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, &NotFoundError{Kind: "client", ID: req.ClientID}
	}
	if !client.Approved {
		return nil, &ValidationError{Reason: "client not approved for booking"}
	}

	if err := m.requireBookable(ctx, req.Start, req.End); err != nil {
		m.metrics.ObserveBooking("unavailable")
		return nil, err
	}

	if req.Recurring == nil {
		return m.createSingle(ctx, req, client)
	}
	return m.createSeries(ctx, req, client)
}

func (m *Manager) createSingle(ctx context.Context, req BookingRequest, client *model.Client) (*CreateResult, error) {
	conflict, err := m.checker.HasConflict(ctx, req.Start, req.End, "")
	if err != nil {
		return nil, err
	}
	if conflict {
		m.metrics.ObserveBooking("conflict")
		return nil, &ConflictError{Start: req.Start, End: req.End}
	}

	appt := m.newAppointment(req, client, nil, model.RecurringType(""))
	entries := m.emails.Plan(appt, client, req.IncludeReminders)
	if err := m.store.CreateAppointmentWithEmails(ctx, appt, entries); err != nil {
		if isExclusionViolation(err) {
			// exclusion constraint caught a commit-time race
			m.metrics.ObserveBooking("conflict")
			return nil, &ConflictError{Start: req.Start, End: req.End}
		}
		return nil, fmt.Errorf("schedule: create appointment: %w", err)
	}
	m.metrics.ObserveBooking("created")
	m.metrics.ObserveEmailsScheduled(len(entries))
	m.logger.Info("appointment created",
		"appointment_id", appt.ID, "client_id", client.ID, "start", appt.StartTime)

	m.sendConfirmation(ctx, appt, client)
	return &CreateResult{Created: []model.Appointment{*appt}}, nil
}

func (m *Manager) createSeries(ctx context.Context, req BookingRequest, client *model.Client) (*CreateResult, error) {
	instances, seriesID, err := m.expander.Expand(ctx, req.Start, req.End, req.Recurring.Type, req.Recurring.Span)
	if err != nil {
		return nil, err
	}

	var (
		appts   []model.Appointment
		entries []model.EmailScheduleEntry
		skipped []model.Slot
	)
	for _, inst := range instances {
		if inst.Conflict {
			skipped = append(skipped, model.Slot{Start: inst.Start, End: inst.End})
			continue
		}
		ok, err := m.resolver.Bookable(ctx, inst.Start, inst.End)
		if err != nil {
			return nil, err
		}
		if !ok {
			skipped = append(skipped, model.Slot{Start: inst.Start, End: inst.End})
			continue
		}
		instReq := req
		instReq.Start, instReq.End = inst.Start, inst.End
		appt := m.newAppointment(instReq, client, &seriesID, req.Recurring.Type)
		appts = append(appts, *appt)
		entries = append(entries, m.emails.Plan(appt, client, req.IncludeReminders)...)
	}
	if len(appts) == 0 {
		return nil, &PartialSeriesFailure{Skipped: skipped}
	}

	if err := m.store.CreateSeriesWithEmails(ctx, appts, entries); err != nil {
		if isExclusionViolation(err) {
			m.metrics.ObserveBooking("conflict")
			return nil, &ConflictError{Start: req.Start, End: req.End}
		}
		return nil, fmt.Errorf("schedule: create series: %w", err)
	}
	m.metrics.ObserveBooking("created")
	m.metrics.ObserveEmailsScheduled(len(entries))
	m.logger.Info("series created",
		"series_id", seriesID, "instances", len(appts), "skipped", len(skipped))

	m.sendConfirmation(ctx, &appts[0], client)
	return &CreateResult{Created: appts, Skipped: skipped}, nil
}

func (m *Manager) newAppointment(req BookingRequest, client *model.Client, seriesID *uuid.UUID, rec model.RecurringType) *model.Appointment {
	appt := &model.Appointment{
		ID:            uuid.New().String(),
		ClientID:      client.ID,
		StartTime:     req.Start,
		EndTime:       req.End,
		Format:        req.Format,
		Status:        model.StatusNotYetAttended,
		Confirmed:     req.Confirmed,
		IsRecurring:   seriesID != nil,
		RecurringType: rec,
		RecurrentID:   seriesID,
	}
	if req.Format == model.FormatOnline && m.video != nil {
		host, guest, err := m.video.IssuePair(appt.ID, client.Name, client.Email, req.Start, req.End)
		if err != nil {
			// tokens are reissuable; booking proceeds without them
			m.logger.Error("video token issuance failed", "appointment_id", appt.ID, "error", err)
		} else {
			appt.HostJWT, appt.ClientJWT = host, guest
		}
	}
	return appt
}

// Update patches one appointment. A time change re-validates availability and
// conflicts (excluding the appointment itself) and recreates its pending email
// entries so none reference the old times.
func (m *Manager) Update(ctx context.Context, id string, patch UpdatePatch) (*model.Appointment, error) {
	appt, err := m.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, &NotFoundError{Kind: "appointment", ID: id}
	}
	client, err := m.store.GetClient(ctx, appt.ClientID)
	if err != nil {
		return nil, &NotFoundError{Kind: "client", ID: appt.ClientID}
	}

	timeChanged := patch.Start != nil || patch.End != nil
	if patch.Start != nil {
		appt.StartTime = *patch.Start
	}
	if patch.End != nil {
		appt.EndTime = *patch.End
	}
	formatChanged := patch.Format != nil && *patch.Format != appt.Format
	if patch.Format != nil {
		appt.Format = *patch.Format
	}

	if timeChanged {
		if err := validateInterval(appt.StartTime, appt.EndTime); err != nil {
			return nil, err
		}
		if err := m.requireBookable(ctx, appt.StartTime, appt.EndTime); err != nil {
			return nil, err
		}
		conflict, err := m.checker.HasConflict(ctx, appt.StartTime, appt.EndTime, appt.ID)
		if err != nil {
			return nil, err
		}
		if conflict {
			return nil, &ConflictError{Start: appt.StartTime, End: appt.EndTime}
		}
	}
	m.refreshVideoTokens(appt, client, timeChanged || formatChanged)

	if timeChanged {
		entries := m.emails.PlanReschedule(appt, client)
		if err := m.store.RescheduleAppointment(ctx, appt, entries); err != nil {
			if isExclusionViolation(err) {
				return nil, &ConflictError{Start: appt.StartTime, End: appt.EndTime}
			}
			return nil, fmt.Errorf("schedule: reschedule appointment: %w", err)
		}
		m.metrics.ObserveEmailsScheduled(len(entries))
	} else {
		if err := m.store.UpdateAppointment(ctx, appt); err != nil {
			return nil, fmt.Errorf("schedule: update appointment: %w", err)
		}
	}
	m.logger.Info("appointment updated", "appointment_id", appt.ID, "time_changed", timeChanged)
	return appt, nil
}

// UpdateSeries applies the same delta to every instance sharing the series id.
// Conflicts are computed for every instance before anything commits; one
// conflict rejects the whole edit (all-or-nothing, unlike the skip-and-commit
// create policy).
func (m *Manager) UpdateSeries(ctx context.Context, seriesID uuid.UUID, patch SeriesPatch) ([]model.Appointment, error) {
	if patch.empty() {
		return nil, &ValidationError{Reason: "empty series patch"}
	}
	appts, err := m.store.FindBySeriesID(ctx, seriesID)
	if err != nil || len(appts) == 0 {
		return nil, &NotFoundError{Kind: "series", ID: seriesID.String()}
	}
	client, err := m.store.GetClient(ctx, appts[0].ClientID)
	if err != nil {
		return nil, &NotFoundError{Kind: "client", ID: appts[0].ClientID}
	}

	for i := range appts {
		a := &appts[i]
		if patch.movesTime() {
			day := model.DayOf(a.StartTime).AddDate(0, 0, patch.DayOffset)
			startClock := model.MinuteOfDayAt(a.StartTime)
			endClock := model.MinuteOfDayAt(a.EndTime)
			if patch.StartClock != nil {
				startClock = *patch.StartClock
			}
			if patch.EndClock != nil {
				endClock = *patch.EndClock
			}
			a.StartTime = startClock.At(day)
			a.EndTime = endClock.At(day)
			if err := validateInterval(a.StartTime, a.EndTime); err != nil {
				return nil, err
			}
		}
		if patch.Format != nil {
			a.Format = *patch.Format
		}
	}

	if patch.movesTime() {
		for i := range appts {
			a := &appts[i]
			if err := m.requireBookable(ctx, a.StartTime, a.EndTime); err != nil {
				return nil, err
			}
			// a uniform shift cannot make series members collide with each
			// other, so the whole series is excluded from the check
			existing, err := m.store.FindOverlappingExcludingSeries(ctx, a.StartTime, a.EndTime, seriesID)
			if err != nil {
				return nil, fmt.Errorf("schedule: series overlap lookup: %w", err)
			}
			if len(existing) > 0 {
				return nil, &ConflictError{Start: a.StartTime, End: a.EndTime}
			}
		}
	}

	var entries []model.EmailScheduleEntry
	if patch.movesTime() {
		for i := range appts {
			entries = append(entries, m.emails.PlanReschedule(&appts[i], client)...)
		}
	}
	for i := range appts {
		m.refreshVideoTokens(&appts[i], client, true)
	}

	if err := m.store.RescheduleSeries(ctx, appts, entries, patch.movesTime()); err != nil {
		return nil, fmt.Errorf("schedule: series update: %w", err)
	}
	m.metrics.ObserveEmailsScheduled(len(entries))
	m.logger.Info("series updated", "series_id", seriesID, "instances", len(appts))
	return appts, nil
}

// Delete removes one appointment. Its pending emails are cancelled first:
// a reminder for a deleted appointment must never reach the dispatcher.
func (m *Manager) Delete(ctx context.Context, id string) error {
	appt, err := m.store.GetAppointment(ctx, id)
	if err != nil {
		return &NotFoundError{Kind: "appointment", ID: id}
	}
	if err := m.emails.Cancel(ctx, appt.ID); err != nil {
		return err
	}
	if err := m.store.DeleteAppointment(ctx, appt.ID); err != nil {
		return fmt.Errorf("schedule: delete appointment: %w", err)
	}
	m.logger.Info("appointment deleted", "appointment_id", id)
	return nil
}

// DeleteSeries removes every instance sharing the series id and bulk-cancels
// their email entries.
func (m *Manager) DeleteSeries(ctx context.Context, seriesID uuid.UUID) error {
	appts, err := m.store.FindBySeriesID(ctx, seriesID)
	if err != nil || len(appts) == 0 {
		return &NotFoundError{Kind: "series", ID: seriesID.String()}
	}
	ids := make([]string, len(appts))
	for i, a := range appts {
		ids[i] = a.ID
	}
	if err := m.emails.CancelSeries(ctx, ids); err != nil {
		return err
	}
	if err := m.store.DeleteSeries(ctx, seriesID); err != nil {
		return fmt.Errorf("schedule: delete series: %w", err)
	}
	m.logger.Info("series deleted", "series_id", seriesID, "instances", len(ids))
	return nil
}

// Confirm approves a pending booking (intake gate).
func (m *Manager) Confirm(ctx context.Context, id string) error {
	appt, err := m.store.GetAppointment(ctx, id)
	if err != nil {
		return &NotFoundError{Kind: "appointment", ID: id}
	}
	if err := m.store.SetConfirmed(ctx, appt.ID); err != nil {
		return fmt.Errorf("schedule: confirm: %w", err)
	}
	if client, err := m.store.GetClient(ctx, appt.ClientID); err == nil {
		m.sendConfirmation(ctx, appt, client)
	}
	return nil
}

// SetStatus moves the attendance status. CANCELLED is terminal: it cancels
// the appointment's pending emails and excludes it from conflict checks.
func (m *Manager) SetStatus(ctx context.Context, id string, status model.AppointmentStatus) error {
	appt, err := m.store.GetAppointment(ctx, id)
	if err != nil {
		return &NotFoundError{Kind: "appointment", ID: id}
	}
	if !validTransition(appt.Status, status) {
		return &ValidationError{Reason: fmt.Sprintf("cannot move %s to %s", appt.Status, status)}
	}
	if err := m.store.UpdateStatus(ctx, appt.ID, status); err != nil {
		return fmt.Errorf("schedule: set status: %w", err)
	}
	if status == model.StatusCancelled {
		if err := m.emails.Cancel(ctx, appt.ID); err != nil {
			return err
		}
		if client, err := m.store.GetClient(ctx, appt.ClientID); err == nil {
			m.sendCancellation(ctx, appt, client)
		}
		m.metrics.ObserveBooking("cancelled")
	}
	return nil
}

func validTransition(from, to model.AppointmentStatus) bool {
	if from == model.StatusCancelled {
		return false
	}
	switch to {
	case model.StatusAttended, model.StatusAbsent, model.StatusCancelled:
		return true
	case model.StatusNotYetAttended:
		return from == model.StatusAttended || from == model.StatusAbsent
	}
	return false
}

func (m *Manager) requireBookable(ctx context.Context, start, end time.Time) error {
	ok, err := m.resolver.Bookable(ctx, start, end)
	if err != nil {
		return err
	}
	if !ok {
		return &UnavailableSlotError{Start: start, End: end}
	}
	return nil
}

func (m *Manager) refreshVideoTokens(appt *model.Appointment, client *model.Client, changed bool) {
	if !changed || m.video == nil {
		return
	}
	if appt.Format != model.FormatOnline {
		appt.HostJWT, appt.ClientJWT = "", ""
		return
	}
	host, guest, err := m.video.IssuePair(appt.ID, client.Name, client.Email, appt.StartTime, appt.EndTime)
	if err != nil {
		m.logger.Error("video token reissue failed", "appointment_id", appt.ID, "error", err)
		return
	}
	appt.HostJWT, appt.ClientJWT = host, guest
}

func (m *Manager) sendConfirmation(ctx context.Context, appt *model.Appointment, client *model.Client) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.SendBookingConfirmation(ctx, appt, client); err != nil {
		m.logger.Error("confirmation email failed", "appointment_id", appt.ID, "error", err)
	}
}

func (m *Manager) sendCancellation(ctx context.Context, appt *model.Appointment, client *model.Client) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.SendCancellation(ctx, appt, client); err != nil {
		m.logger.Error("cancellation email failed", "appointment_id", appt.ID, "error", err)
	}
}

// 23P01 is the exclusion_violation raised by the appointments overlap
// constraint. Anything else is a real store failure, not a lost race.
func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func validateInterval(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return &ValidationError{Reason: "start and end required"}
	}
	if !end.After(start) {
		return &ValidationError{Reason: "end must be after start"}
	}
	return nil
}
