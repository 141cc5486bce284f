package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"practice-management-api/internal/model"
)

const emailColumns = `id, appointment_id, email_type, scheduled_for,
	recipient_email, recipient_name, subject, status, sent_at, error_message, created_at`

// CreateEntries persists planned email entries atomically.
func (s *Store) CreateEntries(ctx context.Context, entries []model.EmailScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertEmailEntriesTx(ctx, tx, entries); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CancelPending moves every PENDING entry of the appointment to CANCELLED and
// reports how many moved. Calling it again finds nothing and succeeds.
func (s *Store) CancelPending(ctx context.Context, appointmentID string) (int64, error) {
	ct, err := s.db.Exec(ctx,
		`UPDATE email_schedule_entries
		 SET status='CANCELLED'
		 WHERE appointment_id = $1 AND status = 'PENDING'`, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("store: cancel pending: %w", err)
	}
	return ct.RowsAffected(), nil
}

// CancelPendingMany is the bulk variant used by series deletion.
func (s *Store) CancelPendingMany(ctx context.Context, appointmentIDs []string) (int64, error) {
	if len(appointmentIDs) == 0 {
		return 0, nil
	}
	ct, err := s.db.Exec(ctx,
		`UPDATE email_schedule_entries
		 SET status='CANCELLED'
		 WHERE appointment_id = ANY($1) AND status = 'PENDING'`, appointmentIDs)
	if err != nil {
		return 0, fmt.Errorf("store: cancel pending many: %w", err)
	}
	return ct.RowsAffected(), nil
}

// FindDue returns PENDING entries whose scheduled time falls within
// now+buffer, oldest first. Consumed by the dispatcher.
func (s *Store) FindDue(ctx context.Context, now time.Time, buffer time.Duration, limit int) ([]model.EmailScheduleEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+emailColumns+`
		 FROM email_schedule_entries
		 WHERE status = 'PENDING' AND scheduled_for <= $1
		 ORDER BY scheduled_for
		 LIMIT $2`, now.Add(buffer), limit)
	if err != nil {
		return nil, fmt.Errorf("store: find due: %w", err)
	}
	defer rows.Close()
	return scanEmailEntries(rows)
}

// MarkSent transitions PENDING -> SENT.
func (s *Store) MarkSent(ctx context.Context, id string, at time.Time) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE email_schedule_entries
		 SET status='SENT', sent_at=$1
		 WHERE id = $2 AND status = 'PENDING'`, at, id)
	if err != nil {
		return fmt.Errorf("store: mark sent: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("store: mark sent: no pending entry with id %s", id)
	}
	return nil
}

// MarkFailed transitions PENDING -> FAILED, recording the dispatcher error.
// FAILED is terminal here; retry policy belongs to the dispatcher's operator.
func (s *Store) MarkFailed(ctx context.Context, id string, errMsg string) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE email_schedule_entries
		 SET status='FAILED', error_message=$1
		 WHERE id = $2 AND status = 'PENDING'`, errMsg, id)
	if err != nil {
		return fmt.Errorf("store: mark failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("store: mark failed: no pending entry with id %s", id)
	}
	return nil
}

// ListEntriesByAppointment returns every entry of an appointment, any status.
func (s *Store) ListEntriesByAppointment(ctx context.Context, appointmentID string) ([]model.EmailScheduleEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+emailColumns+`
		 FROM email_schedule_entries
		 WHERE appointment_id = $1
		 ORDER BY scheduled_for`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("store: list entries: %w", err)
	}
	defer rows.Close()
	return scanEmailEntries(rows)
}

func insertEmailEntriesTx(ctx context.Context, tx pgx.Tx, entries []model.EmailScheduleEntry) error {
	for i := range entries {
		e := &entries[i]
		if _, err := tx.Exec(ctx,
			`INSERT INTO email_schedule_entries
			   (id, appointment_id, email_type, scheduled_for,
			    recipient_email, recipient_name, subject, status)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			e.ID, e.AppointmentID, e.EmailType, e.ScheduledFor,
			e.RecipientEmail, e.RecipientName, e.Subject, e.Status); err != nil {
			return fmt.Errorf("store: insert email entry: %w", err)
		}
	}
	return nil
}

func cancelPendingTx(ctx context.Context, tx pgx.Tx, appointmentIDs []string) error {
	_, err := tx.Exec(ctx,
		`UPDATE email_schedule_entries
		 SET status='CANCELLED'
		 WHERE appointment_id = ANY($1) AND status = 'PENDING'`, appointmentIDs)
	if err != nil {
		return fmt.Errorf("store: cancel pending in tx: %w", err)
	}
	return nil
}

func scanEmailEntries(rows pgx.Rows) ([]model.EmailScheduleEntry, error) {
	var out []model.EmailScheduleEntry
	for rows.Next() {
		var (
			e      model.EmailScheduleEntry
			sentAt *time.Time
			errMsg *string
		)
		if err := rows.Scan(
			&e.ID, &e.AppointmentID, &e.EmailType, &e.ScheduledFor,
			&e.RecipientEmail, &e.RecipientName, &e.Subject, &e.Status,
			&sentAt, &errMsg, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan email entry: %w", err)
		}
		e.SentAt = sentAt
		if errMsg != nil {
			e.ErrorMessage = *errMsg
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
