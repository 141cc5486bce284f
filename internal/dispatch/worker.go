// Package dispatch drains the pending email queue on a timer. It runs as its
// own binary so the API server stays strictly request/response.
package dispatch

import (
	"context"
	"time"

	"practice-management-api/internal/metrics"
	"practice-management-api/internal/model"
	"practice-management-api/internal/notify"
	"practice-management-api/pkg/logging"
)

// QueueStore claims due entries and records the send outcome.
type QueueStore interface {
	FindDue(ctx context.Context, now time.Time, buffer time.Duration, limit int) ([]model.EmailScheduleEntry, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
}

// Worker polls for due entries and sends them. A failed send marks the entry
// FAILED and moves on; this core never retries automatically.
type Worker struct {
	store    QueueStore
	sender   notify.EmailSender
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	interval time.Duration
	buffer   time.Duration
	batch    int
	now      func() time.Time
}

func NewWorker(store QueueStore, sender notify.EmailSender, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		store:    store,
		sender:   sender,
		logger:   logger,
		interval: time.Minute,
		buffer:   30 * time.Second,
		batch:    50,
		now:      time.Now,
	}
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Worker) WithBuffer(d time.Duration) *Worker {
	if d >= 0 {
		w.buffer = d
	}
	return w
}

func (w *Worker) WithBatchSize(n int) *Worker {
	if n > 0 {
		w.batch = n
	}
	return w
}

func (w *Worker) WithMetrics(m *metrics.SchedulingMetrics) *Worker {
	w.metrics = m
	return w
}

// WithClock overrides the clock, for tests.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	w.now = now
	return w
}

// Run polls until the context is cancelled, draining once immediately.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.Drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain processes one batch of due entries and reports how many were sent.
func (w *Worker) Drain(ctx context.Context) int {
	due, err := w.store.FindDue(ctx, w.now(), w.buffer, w.batch)
	if err != nil {
		w.logger.Error("dispatch: fetch due failed", "error", err)
		return 0
	}
	sent := 0
	for i := range due {
		e := &due[i]
		if err := w.sendOne(ctx, e); err != nil {
			w.logger.Error("dispatch: send failed",
				"entry_id", e.ID, "appointment_id", e.AppointmentID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

func (w *Worker) sendOne(ctx context.Context, e *model.EmailScheduleEntry) error {
	msg := notify.EmailMessage{
		To:      e.RecipientEmail,
		ToName:  e.RecipientName,
		Subject: e.Subject,
		Body:    Body(e),
	}
	if err := w.sender.Send(ctx, msg); err != nil {
		w.metrics.ObserveDispatch("failed")
		if markErr := w.store.MarkFailed(ctx, e.ID, err.Error()); markErr != nil {
			w.logger.Error("dispatch: mark failed errored", "entry_id", e.ID, "error", markErr)
		}
		return err
	}
	w.metrics.ObserveDispatch("sent")
	if err := w.store.MarkSent(ctx, e.ID, w.now()); err != nil {
		// sent but not recorded; the PENDING guard on MarkSent keeps a
		// second drain from double-recording, not from double-sending
		w.logger.Error("dispatch: mark sent errored", "entry_id", e.ID, "error", err)
	}
	w.logger.Info("dispatch: email sent",
		"entry_id", e.ID, "type", e.EmailType, "to", e.RecipientEmail)
	return nil
}
