package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"practice-management-api/internal/emailsched"
	"practice-management-api/internal/model"
)

// fakeStore is an in-memory Store and email queue for lifecycle tests.
type fakeStore struct {
	clients map[string]*model.Client
	appts   map[string]*model.Appointment
	emails  map[string]*model.EmailScheduleEntry

	createErr error
}

func newFakeStore(clients ...*model.Client) *fakeStore {
	f := &fakeStore{
		clients: make(map[string]*model.Client),
		appts:   make(map[string]*model.Appointment),
		emails:  make(map[string]*model.EmailScheduleEntry),
	}
	for _, c := range clients {
		f.clients[c.ID] = c
	}
	return f
}

func (f *fakeStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, fmt.Errorf("no client %s", id)
	}
	return c, nil
}

func (f *fakeStore) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return nil, fmt.Errorf("no appointment %s", id)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) FindBySeriesID(ctx context.Context, seriesID uuid.UUID) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.appts {
		if a.RecurrentID != nil && *a.RecurrentID == seriesID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeStore) FindOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.appts {
		if a.ID == excludeID || a.Status == model.StatusCancelled {
			continue
		}
		if a.StartTime.Before(end) && a.EndTime.After(start) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) FindOverlappingExcludingSeries(ctx context.Context, start, end time.Time, seriesID uuid.UUID) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.appts {
		if a.Status == model.StatusCancelled {
			continue
		}
		if a.RecurrentID != nil && *a.RecurrentID == seriesID {
			continue
		}
		if a.StartTime.Before(end) && a.EndTime.After(start) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateAppointmentWithEmails(ctx context.Context, appt *model.Appointment, entries []model.EmailScheduleEntry) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *appt
	f.appts[appt.ID] = &cp
	return f.CreateEntries(ctx, entries)
}

func (f *fakeStore) CreateSeriesWithEmails(ctx context.Context, appts []model.Appointment, entries []model.EmailScheduleEntry) error {
	for i := range appts {
		cp := appts[i]
		f.appts[cp.ID] = &cp
	}
	return f.CreateEntries(ctx, entries)
}

func (f *fakeStore) UpdateAppointment(ctx context.Context, appt *model.Appointment) error {
	if _, ok := f.appts[appt.ID]; !ok {
		return fmt.Errorf("no appointment %s", appt.ID)
	}
	cp := *appt
	f.appts[appt.ID] = &cp
	return nil
}

func (f *fakeStore) RescheduleAppointment(ctx context.Context, appt *model.Appointment, entries []model.EmailScheduleEntry) error {
	if err := f.UpdateAppointment(ctx, appt); err != nil {
		return err
	}
	if _, err := f.CancelPending(ctx, appt.ID); err != nil {
		return err
	}
	return f.CreateEntries(ctx, entries)
}

func (f *fakeStore) RescheduleSeries(ctx context.Context, appts []model.Appointment, entries []model.EmailScheduleEntry, timeChanged bool) error {
	ids := make([]string, 0, len(appts))
	for i := range appts {
		if err := f.UpdateAppointment(ctx, &appts[i]); err != nil {
			return err
		}
		ids = append(ids, appts[i].ID)
	}
	if timeChanged {
		if _, err := f.CancelPendingMany(ctx, ids); err != nil {
			return err
		}
	}
	return f.CreateEntries(ctx, entries)
}

func (f *fakeStore) DeleteAppointment(ctx context.Context, id string) error {
	if _, ok := f.appts[id]; !ok {
		return fmt.Errorf("no appointment %s", id)
	}
	delete(f.appts, id)
	return nil
}

func (f *fakeStore) DeleteSeries(ctx context.Context, seriesID uuid.UUID) error {
	for id, a := range f.appts {
		if a.RecurrentID != nil && *a.RecurrentID == seriesID {
			delete(f.appts, id)
		}
	}
	return nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) error {
	a, ok := f.appts[id]
	if !ok {
		return fmt.Errorf("no appointment %s", id)
	}
	a.Status = status
	return nil
}

func (f *fakeStore) SetConfirmed(ctx context.Context, id string) error {
	a, ok := f.appts[id]
	if !ok {
		return fmt.Errorf("no appointment %s", id)
	}
	a.Confirmed = true
	return nil
}

func (f *fakeStore) CreateEntries(ctx context.Context, entries []model.EmailScheduleEntry) error {
	for i := range entries {
		cp := entries[i]
		f.emails[cp.ID] = &cp
	}
	return nil
}

func (f *fakeStore) CancelPending(ctx context.Context, appointmentID string) (int64, error) {
	return f.CancelPendingMany(ctx, []string{appointmentID})
}

func (f *fakeStore) CancelPendingMany(ctx context.Context, appointmentIDs []string) (int64, error) {
	ids := make(map[string]bool, len(appointmentIDs))
	for _, id := range appointmentIDs {
		ids[id] = true
	}
	var n int64
	for _, e := range f.emails {
		if ids[e.AppointmentID] && e.Status == model.EmailPending {
			e.Status = model.EmailCancelled
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) pendingFor(appointmentID string) []*model.EmailScheduleEntry {
	var out []*model.EmailScheduleEntry
	for _, e := range f.emails {
		if e.AppointmentID == appointmentID && e.Status == model.EmailPending {
			out = append(out, e)
		}
	}
	return out
}

type fakeVideo struct{ fail bool }

func (v *fakeVideo) IssuePair(appointmentID, clientName, clientEmail string, start, end time.Time) (string, string, error) {
	if v.fail {
		return "", "", fmt.Errorf("signer down")
	}
	return "host-" + appointmentID, "client-" + appointmentID, nil
}

func approvedClient() *model.Client {
	return &model.Client{ID: "c1", Name: "Ada", Email: "ada@example.com", Approved: true}
}

// testManager wires a Manager against in-memory fakes. The availability
// template is the shared weekdayTemplate; the clock is pinned well before
// the bookings so neither the past-booking guard nor the reminder
// past-time cutoff trips.
func testManager(st *fakeStore) *Manager {
	return testManagerAt(st, func() time.Time {
		return monday.AddDate(0, 0, -7)
	})
}

func testManagerAt(st *fakeStore, now func() time.Time) *Manager {
	resolver := NewResolver(&fakeAvailability{template: weekdayTemplate()})
	checker := NewChecker(st)
	emails := emailsched.NewScheduler(st, nil).WithClock(now)
	m := NewManager(ManagerDeps{
		Store:    st,
		Resolver: resolver,
		Checker:  checker,
		Expander: NewExpander(checker),
		Emails:   emails,
		Video:    &fakeVideo{},
	})
	m.now = now
	return m
}

func booking(start, end time.Time) BookingRequest {
	return BookingRequest{
		ClientID:         "c1",
		Start:            start,
		End:              end,
		Format:           model.FormatFaceToFace,
		IncludeReminders: true,
	}
}

func TestCreateSingle(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)

	res, err := m.Create(context.Background(), booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.Created) != 1 {
		t.Fatalf("expected 1 created, got %d", len(res.Created))
	}
	a := res.Created[0]
	if a.Status != model.StatusNotYetAttended {
		t.Errorf("status: %s", a.Status)
	}
	if a.IsRecurring || a.RecurrentID != nil {
		t.Error("single booking must not carry series fields")
	}

	pending := st.pendingFor(a.ID)
	if len(pending) != 2 {
		t.Fatalf("expected 24h and 1h reminders, got %d entries", len(pending))
	}
}

func TestCreateSchedulesInvoiceForAutoInvoiceClient(t *testing.T) {
	c := approvedClient()
	c.AutoInvoice = true
	st := newFakeStore(c)
	m := testManager(st)

	res, err := m.Create(context.Background(), booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pending := st.pendingFor(res.Created[0].ID)
	if len(pending) != 3 {
		t.Fatalf("expected reminders plus invoice, got %d entries", len(pending))
	}
	var invoice *model.EmailScheduleEntry
	for _, e := range pending {
		if e.EmailType == model.EmailInvoiceDelivery {
			invoice = e
		}
	}
	if invoice == nil {
		t.Fatal("no invoice entry")
	}
	if !invoice.ScheduledFor.Equal(monday.Add(12 * time.Hour)) {
		t.Errorf("invoice scheduled for %s, want end+1h", invoice.ScheduledFor)
	}
}

func TestCreateRejectsConflict(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	ctx := context.Background()

	if _, err := m.Create(ctx, booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour))); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := m.Create(ctx, booking(monday.Add(10*time.Hour+30*time.Minute), monday.Add(11*time.Hour+30*time.Minute)))
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	// adjacency is not a conflict
	if _, err := m.Create(ctx, booking(monday.Add(11*time.Hour), monday.Add(12*time.Hour))); err != nil {
		t.Fatalf("adjacent create: %v", err)
	}
}

func TestCreateRejectsOutsideAvailability(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)

	// spans the template's lunch gap
	_, err := m.Create(context.Background(), booking(monday.Add(11*time.Hour), monday.Add(14*time.Hour)))
	var ue *UnavailableSlotError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnavailableSlotError, got %v", err)
	}
}

func TestCreateRejectsUnapprovedClient(t *testing.T) {
	c := approvedClient()
	c.Approved = false
	st := newFakeStore(c)
	m := testManager(st)

	_, err := m.Create(context.Background(), booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour)))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateTreatsExclusionViolationAsConflict(t *testing.T) {
	st := newFakeStore(approvedClient())
	st.createErr = &pgconn.PgError{Code: "23P01"}
	m := testManager(st)

	_, err := m.Create(context.Background(), booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour)))
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError on commit-time race, got %v", err)
	}
}

func TestCreateStoreOutageIsNotAConflict(t *testing.T) {
	st := newFakeStore(approvedClient())
	st.createErr = fmt.Errorf("connection refused")
	m := testManager(st)

	_, err := m.Create(context.Background(), booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour)))
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		t.Fatalf("store outage reported as conflict: %v", err)
	}
}

func TestCreateRejectsPastStart(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)

	// the pinned clock is a week before monday
	start := monday.AddDate(0, 0, -7).Add(-2 * time.Hour)
	_, err := m.Create(context.Background(), booking(start, start.Add(time.Hour)))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for past start, got %v", err)
	}
}

func TestCreateOnlineIssuesVideoTokens(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)

	req := booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour))
	req.Format = model.FormatOnline
	res, err := m.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a := res.Created[0]
	if a.HostJWT == "" || a.ClientJWT == "" {
		t.Error("online booking missing video tokens")
	}
}

func TestCreateProceedsWhenVideoIssuerFails(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	m.video = &fakeVideo{fail: true}

	req := booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour))
	req.Format = model.FormatOnline
	res, err := m.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create should survive token failure: %v", err)
	}
	if res.Created[0].HostJWT != "" {
		t.Error("expected empty tokens after issuer failure")
	}
}

func TestCreateSeriesSkipsConflicts(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	ctx := context.Background()

	// pre-book the second weekly slot
	if _, err := m.Create(ctx, booking(monday.AddDate(0, 0, 7).Add(10*time.Hour), monday.AddDate(0, 0, 7).Add(11*time.Hour))); err != nil {
		t.Fatalf("pre-book: %v", err)
	}

	req := booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour))
	req.Recurring = &RecurrenceSpec{Type: model.RecurringWeekly, Span: Span{Count: 4}}
	res, err := m.Create(ctx, req)
	if err != nil {
		t.Fatalf("series create: %v", err)
	}
	if len(res.Created) != 3 {
		t.Fatalf("expected 3 committed instances, got %d", len(res.Created))
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("expected 1 skipped instance, got %d", len(res.Skipped))
	}
	if !res.Skipped[0].Start.Equal(monday.AddDate(0, 0, 7).Add(10 * time.Hour)) {
		t.Errorf("wrong skipped slot: %s", res.Skipped[0].Start)
	}

	seriesID := res.Created[0].RecurrentID
	if seriesID == nil {
		t.Fatal("series instances must share a series id")
	}
	for _, a := range res.Created {
		if a.RecurrentID == nil || *a.RecurrentID != *seriesID {
			t.Error("series id not shared")
		}
		if !a.IsRecurring || a.RecurringType != model.RecurringWeekly {
			t.Error("series fields not set")
		}
	}
}

func TestCreateSeriesSkipsOutOfHoursInstances(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)

	// monthly from Mon Jun 3: Jul 3 is a Wednesday, inactive in the template
	req := booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour))
	req.Recurring = &RecurrenceSpec{Type: model.RecurringMonthly, Span: Span{Count: 2}}
	res, err := m.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("series create: %v", err)
	}
	if len(res.Created) != 1 || len(res.Skipped) != 1 {
		t.Fatalf("expected 1 created + 1 skipped, got %d + %d", len(res.Created), len(res.Skipped))
	}
}

func TestUpdateMovesAppointmentAndRecreatesEmails(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	ctx := context.Background()

	res, err := m.Create(ctx, booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Created[0].ID

	newStart := monday.Add(14 * time.Hour)
	newEnd := monday.Add(15 * time.Hour)
	updated, err := m.Update(ctx, id, UpdatePatch{Start: &newStart, End: &newEnd})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.StartTime.Equal(newStart) {
		t.Errorf("start not moved: %s", updated.StartTime)
	}

	// every pending entry must reference the new times, none the old
	pending := st.pendingFor(id)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending entries after reschedule, got %d", len(pending))
	}
	for _, e := range pending {
		if e.ScheduledFor.After(newStart) {
			t.Errorf("reminder after session start: %s", e.ScheduledFor)
		}
		if e.ScheduledFor.Before(newStart.Add(-25 * time.Hour)) {
			t.Errorf("entry still references old times: %s", e.ScheduledFor)
		}
	}
}

func TestUpdateRejectsMoveOntoBookedSlot(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	ctx := context.Background()

	first, err := m.Create(ctx, booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := m.Create(ctx, booking(monday.Add(14*time.Hour), monday.Add(15*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	target := first.Created[0]
	newStart := target.StartTime.Add(30 * time.Minute)
	newEnd := target.EndTime.Add(30 * time.Minute)
	_, err = m.Update(ctx, second.Created[0].ID, UpdatePatch{Start: &newStart, End: &newEnd})
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestUpdateAllowsReschedulingWithinOwnSlot(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	ctx := context.Background()

	res, err := m.Create(ctx, booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// shifting by 30 minutes overlaps itself; self-exclusion must allow it
	id := res.Created[0].ID
	newStart := monday.Add(10*time.Hour + 30*time.Minute)
	newEnd := monday.Add(11*time.Hour + 30*time.Minute)
	if _, err := m.Update(ctx, id, UpdatePatch{Start: &newStart, End: &newEnd}); err != nil {
		t.Fatalf("self-overlapping reschedule: %v", err)
	}
}

func TestUpdateSeriesShiftsEveryInstance(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	ctx := context.Background()

	req := booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour))
	req.Recurring = &RecurrenceSpec{Type: model.RecurringWeekly, Span: Span{Count: 3}}
	res, err := m.Create(ctx, req)
	if err != nil {
		t.Fatalf("series create: %v", err)
	}
	seriesID := *res.Created[0].RecurrentID

	// Monday 10:00 -> Tuesday 09:00, one hour kept
	start := clock("09:00")
	end := clock("10:00")
	updated, err := m.UpdateSeries(ctx, seriesID, SeriesPatch{DayOffset: 1, StartClock: &start, EndClock: &end})
	if err != nil {
		t.Fatalf("series update: %v", err)
	}
	if len(updated) != 3 {
		t.Fatalf("expected 3 updated, got %d", len(updated))
	}
	for i, a := range updated {
		want := monday.AddDate(0, 0, 7*i+1).Add(9 * time.Hour)
		if !a.StartTime.Equal(want) {
			t.Errorf("instance %d starts %s, want %s", i, a.StartTime, want)
		}
	}
}

func TestUpdateSeriesIsAllOrNothing(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	ctx := context.Background()

	req := booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour))
	req.Recurring = &RecurrenceSpec{Type: model.RecurringWeekly, Span: Span{Count: 3}}
	res, err := m.Create(ctx, req)
	if err != nil {
		t.Fatalf("series create: %v", err)
	}
	seriesID := *res.Created[0].RecurrentID

	// block the target slot of the second instance only
	blockStart := monday.AddDate(0, 0, 8).Add(9 * time.Hour)
	if _, err := m.Create(ctx, booking(blockStart, blockStart.Add(time.Hour))); err != nil {
		t.Fatalf("blocker create: %v", err)
	}

	start := clock("09:00")
	end := clock("10:00")
	_, err = m.UpdateSeries(ctx, seriesID, SeriesPatch{DayOffset: 1, StartClock: &start, EndClock: &end})
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	// nothing moved
	appts, _ := st.FindBySeriesID(ctx, seriesID)
	for i, a := range appts {
		want := monday.AddDate(0, 0, 7*i).Add(10 * time.Hour)
		if !a.StartTime.Equal(want) {
			t.Errorf("instance %d moved to %s despite rejected edit", i, a.StartTime)
		}
	}
}

func TestUpdateSeriesCancelsRemindersEvenWhenReplanIsEmpty(t *testing.T) {
	st := newFakeStore(approvedClient())
	ctx := context.Background()

	req := booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour))
	req.Recurring = &RecurrenceSpec{Type: model.RecurringWeekly, Span: Span{Count: 1}}
	res, err := testManager(st).Create(ctx, req)
	if err != nil {
		t.Fatalf("series create: %v", err)
	}
	id := res.Created[0].ID
	seriesID := *res.Created[0].RecurrentID
	if n := len(st.pendingFor(id)); n != 2 {
		t.Fatalf("expected 2 pending reminders after create, got %d", n)
	}

	// half an hour before the new slot both replacement reminders fall in
	// the past, so the replan is empty; the old entries still reference
	// the pre-move times and must not survive
	m := testManagerAt(st, func() time.Time {
		return monday.AddDate(0, 0, 1).Add(8*time.Hour + 30*time.Minute)
	})
	start := clock("09:00")
	end := clock("10:00")
	if _, err := m.UpdateSeries(ctx, seriesID, SeriesPatch{DayOffset: 1, StartClock: &start, EndClock: &end}); err != nil {
		t.Fatalf("series update: %v", err)
	}
	if n := len(st.pendingFor(id)); n != 0 {
		t.Fatalf("expected no pending entries after the move, got %d", n)
	}
}

func TestUpdateSeriesRejectsEmptyPatch(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)

	_, err := m.UpdateSeries(context.Background(), uuid.New(), SeriesPatch{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDeleteCancelsPendingEmails(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	ctx := context.Background()

	res, err := m.Create(ctx, booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Created[0].ID

	if err := m.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := st.appts[id]; ok {
		t.Error("appointment still present")
	}
	if n := len(st.pendingFor(id)); n != 0 {
		t.Errorf("%d pending entries survived deletion", n)
	}
	// entries remain as CANCELLED audit rows
	cancelled := 0
	for _, e := range st.emails {
		if e.AppointmentID == id && e.Status == model.EmailCancelled {
			cancelled++
		}
	}
	if cancelled == 0 {
		t.Error("expected cancelled entries to survive")
	}

	var ne *NotFoundError
	if err := m.Delete(ctx, id); !errors.As(err, &ne) {
		t.Errorf("second delete: expected NotFoundError, got %v", err)
	}
}

func TestDeleteSeriesRemovesAllInstances(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	ctx := context.Background()

	req := booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour))
	req.Recurring = &RecurrenceSpec{Type: model.RecurringBiweekly, Span: Span{Count: 3}}
	res, err := m.Create(ctx, req)
	if err != nil {
		t.Fatalf("series create: %v", err)
	}
	seriesID := *res.Created[0].RecurrentID

	if err := m.DeleteSeries(ctx, seriesID); err != nil {
		t.Fatalf("delete series: %v", err)
	}
	if len(st.appts) != 0 {
		t.Errorf("%d appointments survived series deletion", len(st.appts))
	}
	for _, e := range st.emails {
		if e.Status == model.EmailPending {
			t.Errorf("pending entry %s survived series deletion", e.ID)
		}
	}
}

func TestSetStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from model.AppointmentStatus
		to   model.AppointmentStatus
		ok   bool
	}{
		{"mark attended", model.StatusNotYetAttended, model.StatusAttended, true},
		{"mark absent", model.StatusNotYetAttended, model.StatusAbsent, true},
		{"cancel", model.StatusNotYetAttended, model.StatusCancelled, true},
		{"correct attended back", model.StatusAttended, model.StatusNotYetAttended, true},
		{"correct absent to attended", model.StatusAbsent, model.StatusAttended, true},
		{"cancelled is terminal", model.StatusCancelled, model.StatusAttended, false},
		{"no un-cancel", model.StatusCancelled, model.StatusNotYetAttended, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore(approvedClient())
			m := testManager(st)
			ctx := context.Background()

			res, err := m.Create(ctx, booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour)))
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			id := res.Created[0].ID
			st.appts[id].Status = tt.from

			err = m.SetStatus(ctx, id, tt.to)
			if tt.ok && err != nil {
				t.Fatalf("transition %s -> %s: %v", tt.from, tt.to, err)
			}
			if !tt.ok {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("transition %s -> %s: expected ValidationError, got %v", tt.from, tt.to, err)
				}
			}
		})
	}
}

func TestCancelStatusCancelsEmailsAndFreesSlot(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	ctx := context.Background()

	res, err := m.Create(ctx, booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Created[0].ID

	if err := m.SetStatus(ctx, id, model.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if n := len(st.pendingFor(id)); n != 0 {
		t.Errorf("%d pending emails survived cancellation", n)
	}

	// the cancelled slot is bookable again
	if _, err := m.Create(ctx, booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour))); err != nil {
		t.Fatalf("rebooking cancelled slot: %v", err)
	}
}

func TestConfirm(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	ctx := context.Background()

	res, err := m.Create(ctx, booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Created[0].ID

	if err := m.Confirm(ctx, id); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !st.appts[id].Confirmed {
		t.Error("not confirmed")
	}
}

func TestCreateValidation(t *testing.T) {
	st := newFakeStore(approvedClient())
	m := testManager(st)
	ctx := context.Background()

	var ve *ValidationError
	if _, err := m.Create(ctx, booking(monday.Add(11*time.Hour), monday.Add(10*time.Hour))); !errors.As(err, &ve) {
		t.Errorf("inverted interval: got %v", err)
	}
	if _, err := m.Create(ctx, booking(time.Time{}, time.Time{})); !errors.As(err, &ve) {
		t.Errorf("zero times: got %v", err)
	}

	req := booking(monday.Add(10*time.Hour), monday.Add(11*time.Hour))
	req.ClientID = ""
	if _, err := m.Create(ctx, req); !errors.As(err, &ve) {
		t.Errorf("missing client: got %v", err)
	}

	var ne *NotFoundError
	req.ClientID = "ghost"
	if _, err := m.Create(ctx, req); !errors.As(err, &ne) {
		t.Errorf("unknown client: got %v", err)
	}
}
