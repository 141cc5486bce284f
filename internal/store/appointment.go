package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"practice-management-api/internal/model"
)

const appointmentColumns = `id, client_id, start_time, end_time, format, status, confirmed,
	is_recurring, recurring_type, recurrent_id, host_jwt, client_jwt, created_at, updated_at`

// FindOverlapping returns non-cancelled appointments overlapping [start,end)
// under half-open semantics. excludeID lets a reschedule ignore itself.
func (s *Store) FindOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]model.Appointment, error) {
	q := `SELECT ` + appointmentColumns + `
	 FROM appointments
	 WHERE status != 'CANCELLED'
	   AND start_time < $2
	   AND end_time > $1`
	args := []any{start, end}
	if excludeID != "" {
		q += ` AND id != $3`
		args = append(args, excludeID)
	}
	q += ` ORDER BY start_time`

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: find overlapping: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// FindOverlappingExcludingSeries ignores every member of the given series.
func (s *Store) FindOverlappingExcludingSeries(ctx context.Context, start, end time.Time, seriesID uuid.UUID) ([]model.Appointment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE status != 'CANCELLED'
		   AND start_time < $2
		   AND end_time > $1
		   AND (recurrent_id IS NULL OR recurrent_id != $3)
		 ORDER BY start_time`, start, end, seriesID.String())
	if err != nil {
		return nil, fmt.Errorf("store: find overlapping excluding series: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("store: get appointment: %w", err)
	}
	return a, nil
}

func (s *Store) ListAppointments(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE start_time < $2 AND end_time > $1
		 ORDER BY start_time`, from, to)
	if err != nil {
		return nil, fmt.Errorf("store: list appointments: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (s *Store) FindBySeriesID(ctx context.Context, seriesID uuid.UUID) ([]model.Appointment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE recurrent_id = $1
		 ORDER BY start_time`, seriesID.String())
	if err != nil {
		return nil, fmt.Errorf("store: find by series: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// CreateAppointmentWithEmails inserts the appointment and its planned email
// entries in one transaction: an appointment row is never committed without
// its email set.
func (s *Store) CreateAppointmentWithEmails(ctx context.Context, a *model.Appointment, entries []model.EmailScheduleEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertAppointmentTx(ctx, tx, a); err != nil {
		return err
	}
	if err := insertEmailEntriesTx(ctx, tx, entries); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateSeriesWithEmails commits all series instances and their entries
// atomically.
func (s *Store) CreateSeriesWithEmails(ctx context.Context, appts []model.Appointment, entries []model.EmailScheduleEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range appts {
		if err := insertAppointmentTx(ctx, tx, &appts[i]); err != nil {
			return err
		}
	}
	if err := insertEmailEntriesTx(ctx, tx, entries); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateAppointment patches the mutable fields without touching the email
// queue. Time changes must go through RescheduleAppointment instead.
func (s *Store) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	_, err := s.db.Exec(ctx,
		`UPDATE appointments
		 SET start_time=$1, end_time=$2, format=$3, confirmed=$4,
		     host_jwt=$5, client_jwt=$6, updated_at=NOW()
		 WHERE id=$7`,
		a.StartTime, a.EndTime, a.Format, a.Confirmed, a.HostJWT, a.ClientJWT, a.ID)
	if err != nil {
		return fmt.Errorf("store: update appointment: %w", err)
	}
	return nil
}

// RescheduleAppointment moves the appointment and swaps its pending email
// entries for the replacement set, all in one transaction, so no PENDING
// entry ever references the old times.
func (s *Store) RescheduleAppointment(ctx context.Context, a *model.Appointment, entries []model.EmailScheduleEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE appointments
		 SET start_time=$1, end_time=$2, format=$3,
		     host_jwt=$4, client_jwt=$5, updated_at=NOW()
		 WHERE id=$6`,
		a.StartTime, a.EndTime, a.Format, a.HostJWT, a.ClientJWT, a.ID); err != nil {
		return fmt.Errorf("store: reschedule update: %w", err)
	}
	if err := cancelPendingTx(ctx, tx, []string{a.ID}); err != nil {
		return err
	}
	if err := insertEmailEntriesTx(ctx, tx, entries); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RescheduleSeries is the all-or-nothing variant for series-wide edits.
// When timeChanged, pending entries are cancelled even if the replacement
// plan is empty; a PENDING entry must never reference the pre-move times.
func (s *Store) RescheduleSeries(ctx context.Context, appts []model.Appointment, entries []model.EmailScheduleEntry, timeChanged bool) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]string, len(appts))
	for i := range appts {
		a := &appts[i]
		ids[i] = a.ID
		if _, err := tx.Exec(ctx,
			`UPDATE appointments
			 SET start_time=$1, end_time=$2, format=$3,
			     host_jwt=$4, client_jwt=$5, updated_at=NOW()
			 WHERE id=$6`,
			a.StartTime, a.EndTime, a.Format, a.HostJWT, a.ClientJWT, a.ID); err != nil {
			return fmt.Errorf("store: reschedule series update: %w", err)
		}
	}
	if timeChanged {
		if err := cancelPendingTx(ctx, tx, ids); err != nil {
			return err
		}
		if err := insertEmailEntriesTx(ctx, tx, entries); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete appointment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("store: delete appointment: no row with id %s", id)
	}
	return nil
}

func (s *Store) DeleteSeries(ctx context.Context, seriesID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM appointments WHERE recurrent_id = $1`, seriesID.String())
	if err != nil {
		return fmt.Errorf("store: delete series: %w", err)
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE appointments SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return fmt.Errorf("store: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("store: update status: no row with id %s", id)
	}
	return nil
}

func (s *Store) SetConfirmed(ctx context.Context, id string) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE appointments SET confirmed=true, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("store: set confirmed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("store: set confirmed: no row with id %s", id)
	}
	return nil
}

func insertAppointmentTx(ctx context.Context, tx pgx.Tx, a *model.Appointment) error {
	var recurrentID *string
	if a.RecurrentID != nil {
		v := a.RecurrentID.String()
		recurrentID = &v
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO appointments
		   (id, client_id, start_time, end_time, format, status, confirmed,
		    is_recurring, recurring_type, recurrent_id, host_jwt, client_jwt)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.ClientID, a.StartTime, a.EndTime, a.Format, a.Status, a.Confirmed,
		a.IsRecurring, nullableString(string(a.RecurringType)), recurrentID, a.HostJWT, a.ClientJWT)
	if err != nil {
		return fmt.Errorf("store: insert appointment: %w", err)
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan appointment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var (
		a           model.Appointment
		recurring   *string
		recurrentID *string
	)
	if err := row.Scan(
		&a.ID, &a.ClientID, &a.StartTime, &a.EndTime, &a.Format, &a.Status, &a.Confirmed,
		&a.IsRecurring, &recurring, &recurrentID, &a.HostJWT, &a.ClientJWT, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if recurring != nil {
		a.RecurringType = model.RecurringType(*recurring)
	}
	if recurrentID != nil {
		id, err := uuid.Parse(*recurrentID)
		if err != nil {
			return nil, fmt.Errorf("bad recurrent_id %q: %w", *recurrentID, err)
		}
		a.RecurrentID = &id
	}
	return &a, nil
}
